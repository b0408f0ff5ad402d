package imaging

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// AverageColor returns the mean colour of img as "#rrggbb".
//
// The image is box-filtered down to a single pixel, so every source pixel
// contributes equally. Empty images yield "#000000".
func AverageColor(img image.Image) string {
	if img.Bounds().Empty() {
		return "#000000"
	}

	pixel := imaging.Resize(img, 1, 1, imaging.Box)
	c, _ := colorful.MakeColor(pixel.NRGBAAt(0, 0))
	return c.Clamped().Hex()
}

// ParseColor parses "#RRGGBB" (or "#RGB") into a colour, returning fallback
// when the string is not a valid hex colour.
func ParseColor(hex string, fallback colorful.Color) colorful.Color {
	if hex == "" {
		return fallback
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}
