// Package imaging provides the image plumbing around photo segmentation.
//
// It decodes uploaded scans, produces the reduced-resolution buffer used for
// brightness analysis, crops detected regions into small JPEG previews, and
// draws annotated debug overlays. All operations work with standard Go
// image.Image values and use a coordinate system where (0,0) is the top-left
// corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// For regions, Min is inclusive and Max is exclusive, matching
// image.Rectangle.
//
// # Supported Formats
//
// Decoding accepts PNG, JPEG, GIF, BMP, TIFF and WebP. Previews are always
// JPEG; overlays are always PNG.
//
// # Thread Safety
//
// Every function is stateless. Decoded images are never mutated, so the
// preview cropper may run concurrently against the same source image.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty or undecodable input bytes
//   - Images with zero width or height
//   - Crop regions outside the image bounds or with no area
//   - Encoding failures
package imaging
