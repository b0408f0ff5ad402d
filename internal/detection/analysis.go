package detection

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/histogram"

	"github.com/ironsheep/scan-splitter/internal/imaging"
)

// coordEpsilon absorbs float error when mapping between analysis and source
// coordinates (e.g. 320 / 0.8 must floor to 400, not 399).
const coordEpsilon = 1e-6

// Analysis is the reduced-resolution brightness view of one source image.
//
// It is built once per request and discarded afterwards; nothing is cached
// across requests.
type Analysis struct {
	buf    *image.NRGBA
	width  int // analysis width
	height int // analysis height
	scaleX float64
	scaleY float64
	srcW   int
	srcH   int

	// brightness holds the mean of R, G and B for every analysis pixel,
	// row-major.
	brightness []float64
}

// NewAnalysis downscales src so its longer side is at most maxDim and
// precomputes per-pixel brightness.
func NewAnalysis(src image.Image, maxDim int) *Analysis {
	d := imaging.Downscale(src, maxDim)
	b := d.Image.Bounds()

	a := &Analysis{
		buf:        d.Image,
		width:      b.Dx(),
		height:     b.Dy(),
		scaleX:     d.ScaleX,
		scaleY:     d.ScaleY,
		srcW:       src.Bounds().Dx(),
		srcH:       src.Bounds().Dy(),
		brightness: make([]float64, b.Dx()*b.Dy()),
	}

	pix := d.Image.Pix
	for y := 0; y < a.height; y++ {
		row := pix[y*d.Image.Stride:]
		for x := 0; x < a.width; x++ {
			i := x * 4
			a.brightness[y*a.width+x] = (float64(row[i]) + float64(row[i+1]) + float64(row[i+2])) / 3
		}
	}

	return a
}

// Size returns the analysis buffer dimensions.
func (a *Analysis) Size() (int, int) {
	return a.width, a.height
}

// SourceSize returns the dimensions of the image the analysis was built from.
func (a *Analysis) SourceSize() (int, int) {
	return a.srcW, a.srcH
}

// Scale returns the source-to-analysis scale factors.
func (a *Analysis) Scale() (float64, float64) {
	return a.scaleX, a.scaleY
}

// Brightness returns the mean channel value of analysis pixel (x, y).
func (a *Analysis) Brightness(x, y int) float64 {
	return a.brightness[y*a.width+x]
}

// RowProfile returns the mean brightness of every analysis row.
func (a *Analysis) RowProfile() []float64 {
	profile := make([]float64, a.height)
	if a.width == 0 {
		return profile
	}
	for y := 0; y < a.height; y++ {
		sum := 0.0
		for _, v := range a.brightness[y*a.width : (y+1)*a.width] {
			sum += v
		}
		profile[y] = sum / float64(a.width)
	}
	return profile
}

// ColumnProfile returns the mean brightness of every analysis column.
func (a *Analysis) ColumnProfile() []float64 {
	profile := make([]float64, a.width)
	if a.height == 0 {
		return profile
	}
	for y := 0; y < a.height; y++ {
		row := a.brightness[y*a.width : (y+1)*a.width]
		for x, v := range row {
			profile[x] += v
		}
	}
	for x := range profile {
		profile[x] /= float64(a.height)
	}
	return profile
}

// IsBlank reports whether every channel of every analysis pixel is at or
// above threshold, meaning no pixel can count as content.
//
// It is a sufficient test only: a page that fails it may still turn out to
// have no content once per-pixel means are compared.
func (a *Analysis) IsBlank(threshold float64) bool {
	hist := histogram.NewRGBAHistogram(a.buf)
	limit := int(math.Ceil(threshold))
	if limit > 256 {
		limit = 256
	}
	for _, channel := range []histogram.Histogram{hist.R, hist.G, hist.B} {
		for v := 0; v < limit && v < len(channel.Bins); v++ {
			if channel.Bins[v] > 0 {
				return false
			}
		}
	}
	return true
}

// toAnalysisRect maps a source rectangle onto the analysis buffer, rounding
// outward and clipping to the buffer.
func (a *Analysis) toAnalysisRect(src image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Floor(float64(src.Min.X)*a.scaleX+coordEpsilon)),
		int(math.Floor(float64(src.Min.Y)*a.scaleY+coordEpsilon)),
		int(math.Ceil(float64(src.Max.X)*a.scaleX-coordEpsilon)),
		int(math.Ceil(float64(src.Max.Y)*a.scaleY-coordEpsilon)),
	)
	return r.Intersect(image.Rect(0, 0, a.width, a.height))
}

// toSourceRect maps an analysis rectangle back to source coordinates,
// rounding outward and clipping to the source image.
func (a *Analysis) toSourceRect(r image.Rectangle) image.Rectangle {
	src := image.Rect(
		int(math.Floor(float64(r.Min.X)/a.scaleX+coordEpsilon)),
		int(math.Floor(float64(r.Min.Y)/a.scaleY+coordEpsilon)),
		int(math.Ceil(float64(r.Max.X)/a.scaleX-coordEpsilon)),
		int(math.Ceil(float64(r.Max.Y)/a.scaleY-coordEpsilon)),
	)
	return src.Intersect(image.Rect(0, 0, a.srcW, a.srcH))
}
