package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Downscaled is a reduced-resolution copy of a source image used for
// brightness analysis.
type Downscaled struct {
	// Image is the analysis buffer. Its bounds always start at (0,0).
	Image *image.NRGBA

	// ScaleX and ScaleY convert source coordinates to analysis coordinates
	// (analysis = source × scale). Both are 1 when no resize happened.
	ScaleX float64
	ScaleY float64
}

// Downscale returns a copy of img whose longer side is at most maxDim pixels.
//
// Images already within the limit are copied unchanged so the caller always
// owns an *image.NRGBA with zero-origin bounds. The box filter averages the
// source pixels under each output pixel, which preserves mean brightness.
func Downscale(img image.Image, maxDim int) *Downscaled {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	longer := w
	if h > longer {
		longer = h
	}

	if maxDim <= 0 || longer <= maxDim {
		return &Downscaled{
			Image:  imaging.Clone(img),
			ScaleX: 1,
			ScaleY: 1,
		}
	}

	scale := float64(maxDim) / float64(longer)
	aw := int(math.Max(1, math.Round(float64(w)*scale)))
	ah := int(math.Max(1, math.Round(float64(h)*scale)))

	return &Downscaled{
		Image:  imaging.Resize(img, aw, ah, imaging.Box),
		ScaleX: float64(aw) / float64(w),
		ScaleY: float64(ah) / float64(h),
	}
}
