package detection

import (
	"image"
	"math"
)

// Pad expands r by fraction × imgW on the left and right and fraction × imgH
// on the top and bottom, then clamps the result to the image.
//
// Vision models tend to draw boxes tight against or just inside the print
// edge; the margin recovers the border. Deterministic regions are not padded.
func Pad(r Region, imgW, imgH int, fraction float64) Region {
	padX := int(math.Round(fraction * float64(imgW)))
	padY := int(math.Round(fraction * float64(imgH)))

	grown := image.Rect(r.X-padX, r.Y-padY, r.X+r.Width+padX, r.Y+r.Height+padY)
	clamped := grown.Intersect(image.Rect(0, 0, imgW, imgH))

	out := r
	out.X = clamped.Min.X
	out.Y = clamped.Min.Y
	out.Width = clamped.Dx()
	out.Height = clamped.Dy()
	return out
}

// PadAll applies Pad to every region and returns a new slice.
func PadAll(regions []Region, imgW, imgH int, fraction float64) []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, Pad(r, imgW, imgH, fraction))
	}
	return out
}
