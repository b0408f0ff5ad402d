package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PreviewResult contains an encoded preview of one cropped region.
type PreviewResult struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	DataURL      string `json:"data_url"`
	MimeType     string `json:"mime_type"`
	AverageColor string `json:"average_color"`
}

// checkCropRect rejects rectangles that are empty or leave the image.
func checkCropRect(img image.Image, rect image.Rectangle) error {
	bounds := img.Bounds()
	if rect.Min.X < bounds.Min.X || rect.Min.Y < bounds.Min.Y || rect.Max.X > bounds.Max.X || rect.Max.Y > bounds.Max.Y {
		return fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if rect.Min.X >= rect.Max.X || rect.Min.Y >= rect.Max.Y {
		return fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	return nil
}

// Preview crops rect out of img, shrinks it to fit within maxDim × maxDim and
// encodes it as a JPEG data URL at the given quality.
//
// Crops already smaller than maxDim are not enlarged. A non-positive maxDim
// disables resizing.
func Preview(img image.Image, rect image.Rectangle, maxDim, quality int) (*PreviewResult, error) {
	if err := checkCropRect(img, rect); err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, rect)
	if maxDim > 0 && (cropped.Bounds().Dx() > maxDim || cropped.Bounds().Dy() > maxDim) {
		cropped = imaging.Fit(cropped, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:        cropped.Bounds().Dx(),
		Height:       cropped.Bounds().Dy(),
		DataURL:      "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:     "image/jpeg",
		AverageColor: AverageColor(cropped),
	}, nil
}

// CropJPEG crops rect out of img at full resolution and encodes it as JPEG.
func CropJPEG(img image.Image, rect image.Rectangle, quality int) ([]byte, error) {
	if err := checkCropRect(img, rect); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
