package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

var (
	// ErrEmptyInput is returned when no image bytes were supplied.
	ErrEmptyInput = errors.New("no image data provided")

	// ErrEmptyImage is returned when an image decodes to zero width or height.
	ErrEmptyImage = errors.New("image has zero width or height")

	// ErrTooManyPixels is returned when the image header declares more pixels
	// than the decode limit allows.
	ErrTooManyPixels = errors.New("image exceeds pixel limit")
)

// DefaultMaxPixels is the decode limit used when none is configured. It
// admits an A4 page scanned at 1200 dpi.
const DefaultMaxPixels = 150_000_000

// ImageInfo contains metadata about a decoded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the codec name reported by image.Decode ("png", "jpeg", ...).
	Format string `json:"format"`

	// SizeBytes is the length of the encoded input.
	SizeBytes int64 `json:"size_bytes"`
}

// Decode decodes an encoded image held in memory.
//
// The header is read first and images declaring more than maxPixels pixels
// are rejected before any pixel buffer is allocated. maxPixels <= 0 uses
// DefaultMaxPixels.
//
// Returns:
//   - image.Image: The decoded image. The concrete type depends on the codec.
//   - *ImageInfo: Dimensions and detected format.
//   - error: ErrEmptyInput for empty data, ErrEmptyImage for zero-dimension
//     images, ErrTooManyPixels for oversized headers, or a wrapped codec
//     error for anything undecodable.
func Decode(data []byte, maxPixels int) (image.Image, *ImageInfo, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmptyInput
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, nil, ErrEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, nil, fmt.Errorf("%w: %dx%d declared, limit %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, nil, ErrEmptyImage
	}

	return img, &ImageInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		SizeBytes: int64(len(data)),
	}, nil
}

// LoadFile reads an image file from disk without decoding it.
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return data, nil
}

// MimeType maps an image.Decode format name to its MIME type.
//
// Unknown formats map to "application/octet-stream".
func MimeType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
