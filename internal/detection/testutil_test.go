package detection

import (
	"image"
	"image/color"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillRect paints rect onto img with c
func fillRect(img *image.RGBA, rect image.Rectangle, c color.Color) {
	rect = rect.Intersect(img.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// createScanImage creates a white page with dark prints at the given rectangles
func createScanImage(width, height int, prints ...image.Rectangle) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for _, p := range prints {
		fillRect(img, p, color.RGBA{40, 30, 20, 255})
	}
	return img
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// within reports whether got is within pct percent of want
func within(got, want int, pct float64) bool {
	return float64(absInt(got-want)) <= float64(want)*pct/100
}

func grayColor(v uint8) color.Color {
	return color.RGBA{v, v, v, 255}
}
