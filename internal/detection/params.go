package detection

// Params holds every threshold used by the deterministic detector and the
// shared region hygiene.
type Params struct {
	// AnalysisMaxDim caps the longer side of the analysis buffer.
	AnalysisMaxDim int

	// GapBrightness is the mean brightness (0-255) a row or column must
	// exceed to be part of a gap.
	GapBrightness float64

	// GapFraction is the minimum gap length as a fraction of the analysis
	// dimension along the scanned axis.
	GapFraction float64

	// ContentBrightness is the brightness below which a pixel counts as
	// photo content rather than background.
	ContentBrightness float64

	// MinRegionSize is the minimum width and height, in source pixels, of a
	// deterministic region.
	MinRegionSize int

	// VisionMinRegionSize is the minimum width and height for vision-model
	// regions.
	VisionMinRegionSize int

	// MaxAreaFraction rejects regions covering more than this share of the
	// page, which are almost always the page itself.
	MaxAreaFraction float64

	// MergeThreshold is the IoU above which two regions are merged.
	MergeThreshold float64

	// PaddingFraction expands vision-model regions by this share of the
	// image width/height on each side.
	PaddingFraction float64

	// GridConfidence is assigned to regions recovered from gaps.
	GridConfidence float64

	// FallbackConfidence is assigned to the content-bounds region.
	FallbackConfidence float64
}

// DefaultParams returns the empirically chosen defaults.
func DefaultParams() Params {
	return Params{
		AnalysisMaxDim:      800,
		GapBrightness:       235,
		GapFraction:         0.02,
		ContentBrightness:   230,
		MinRegionSize:       100,
		VisionMinRegionSize: 50,
		MaxAreaFraction:     0.98,
		MergeThreshold:      0.5,
		PaddingFraction:     0.01,
		GridConfidence:      1.0,
		FallbackConfidence:  0.7,
	}
}

// WithDefaults fills zero-valued fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.AnalysisMaxDim <= 0 {
		p.AnalysisMaxDim = d.AnalysisMaxDim
	}
	if p.GapBrightness <= 0 {
		p.GapBrightness = d.GapBrightness
	}
	if p.GapFraction <= 0 {
		p.GapFraction = d.GapFraction
	}
	if p.ContentBrightness <= 0 {
		p.ContentBrightness = d.ContentBrightness
	}
	if p.MinRegionSize <= 0 {
		p.MinRegionSize = d.MinRegionSize
	}
	if p.VisionMinRegionSize <= 0 {
		p.VisionMinRegionSize = d.VisionMinRegionSize
	}
	if p.MaxAreaFraction <= 0 {
		p.MaxAreaFraction = d.MaxAreaFraction
	}
	if p.MergeThreshold <= 0 {
		p.MergeThreshold = d.MergeThreshold
	}
	if p.PaddingFraction <= 0 {
		p.PaddingFraction = d.PaddingFraction
	}
	if p.GridConfidence <= 0 {
		p.GridConfidence = d.GridConfidence
	}
	if p.FallbackConfidence <= 0 {
		p.FallbackConfidence = d.FallbackConfidence
	}
	return p
}
