package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/lucasb-eyer/go-colorful"
)

// Box is one rectangle to draw on an overlay, with a short numeric label.
type Box struct {
	Rect  image.Rectangle
	Label string
}

// OverlayResult contains the annotated image encoded as PNG.
type OverlayResult struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	PNG      []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Boxes    int    `json:"boxes"`
}

var defaultBoxColor = colorful.Color{R: 1, G: 0, B: 0}

// Annotate draws each box outline and its label on a copy of img.
//
// Parameters:
//   - img: Source image; never modified.
//   - boxes: Rectangles in img coordinates. Parts outside the image are clipped.
//   - thickness: Outline width in pixels; values below 1 are treated as 1.
//   - boxColorHex: Outline colour as "#RRGGBB". Invalid or empty strings fall
//     back to red.
func Annotate(img image.Image, boxes []Box, thickness int, boxColorHex string) (*OverlayResult, error) {
	bounds := img.Bounds()
	if thickness < 1 {
		thickness = 1
	}

	r, g, b := ParseColor(boxColorHex, defaultBoxColor).Clamped().RGB255()
	boxColor := color.RGBA{R: r, G: g, B: b, A: 255}

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	for _, box := range boxes {
		rect := box.Rect.Canon().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		drawOutline(result, rect, thickness, boxColor)
		if box.Label != "" {
			drawLabel(result, rect.Min.X+thickness+1, rect.Min.Y+thickness+1, box.Label, labelColor, boxColor)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		PNG:      buf.Bytes(),
		MimeType: "image/png",
		Boxes:    len(boxes),
	}, nil
}

// drawOutline paints a rectangle border of the given thickness inside rect.
func drawOutline(img *image.RGBA, rect image.Rectangle, thickness int, c color.RGBA) {
	uniform := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thickness),
		image.Rect(rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y),
		image.Rect(rect.Max.X-thickness, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(rect), uniform, image.Point{}, draw.Src)
	}
}

// drawLabel draws a simple text label at the given position
// This is a basic implementation - only digits, '_' and ',' have glyphs
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	// Simple 3x5 pixel font
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'_': {"000", "000", "000", "000", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
