package detection

import (
	"fmt"
	"image"
	"math"
)

// Region is a candidate rectangle believed to bound one printed photo.
//
// Regions are values: Merge, Pad and ClampToImage return new Regions rather
// than mutating their input.
type Region struct {
	// ID is stable within one detection run ("photo_0", "photo_1", ...).
	ID string `json:"id"`

	// X, Y is the top-left corner in source-image pixels.
	X int `json:"x"`
	Y int `json:"y"`

	// Width and Height are always positive for returned regions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Confidence is a heuristic score in [0, 1].
	Confidence float64 `json:"confidence"`

	// Preview is a data URL of a small JPEG of the cropped region.
	Preview string `json:"preview,omitempty"`

	// AverageColor is the "#rrggbb" mean colour of the preview.
	AverageColor string `json:"averageColor,omitempty"`
}

// Rect returns the region as an image.Rectangle (Max exclusive).
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Area returns Width × Height, or 0 for degenerate regions.
func (r Region) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// String formats the region as "WxH+X+Y".
func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// RegionFromRect builds a region from a rectangle with the given confidence.
func RegionFromRect(rect image.Rectangle, confidence float64) Region {
	rect = rect.Canon()
	return Region{
		X:          rect.Min.X,
		Y:          rect.Min.Y,
		Width:      rect.Dx(),
		Height:     rect.Dy(),
		Confidence: confidence,
	}
}

// IoU returns the intersection-over-union of two regions' rectangles.
//
// Returns 0 when either region is empty or the union has no area.
func IoU(a, b Region) float64 {
	areaA := a.Area()
	areaB := b.Area()
	if areaA == 0 || areaB == 0 {
		return 0
	}

	inter := a.Rect().Intersect(b.Rect())
	interArea := inter.Dx() * inter.Dy()

	union := areaA + areaB - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

// ClampToImage intersects the region with the image bounds [0,w) × [0,h).
//
// The boolean is false when nothing of the region lies inside the image.
func ClampToImage(r Region, imgW, imgH int) (Region, bool) {
	clipped := r.Rect().Intersect(image.Rect(0, 0, imgW, imgH))
	if clipped.Empty() {
		return Region{}, false
	}
	out := r
	out.X = clipped.Min.X
	out.Y = clipped.Min.Y
	out.Width = clipped.Dx()
	out.Height = clipped.Dy()
	return out, true
}

// ClampConfidence keeps an untrusted score inside [0, 1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
