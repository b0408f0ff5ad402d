package detection

import "math"

// Gap is a run of bright samples in a brightness profile.
//
// Start is inclusive and End exclusive, in analysis coordinates.
type Gap struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples in the gap.
func (g Gap) Len() int {
	return g.End - g.Start
}

// Separators holds the cut lines found by gap analysis, in source pixels.
type Separators struct {
	// Horizontal lines come from row gaps and split the page into bands of rows.
	Horizontal []int `json:"horizontal"`

	// Vertical lines come from column gaps and split the page into bands of columns.
	Vertical []int `json:"vertical"`
}

// Empty reports whether no separator was found in either direction.
func (s Separators) Empty() bool {
	return len(s.Horizontal) == 0 && len(s.Vertical) == 0
}

// FindGaps returns every run of at least minLen consecutive samples whose
// value exceeds threshold, in ascending order.
func FindGaps(profile []float64, threshold float64, minLen int) []Gap {
	if minLen < 1 {
		minLen = 1
	}

	var gaps []Gap
	start := -1
	for i, v := range profile {
		if v > threshold {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			gaps = append(gaps, Gap{Start: start, End: i})
		}
		start = -1
	}
	if start >= 0 && len(profile)-start >= minLen {
		gaps = append(gaps, Gap{Start: start, End: len(profile)})
	}
	return gaps
}

// minGapSize is the minimum gap length for a profile of length dim.
func minGapSize(dim int, fraction float64) int {
	n := int(math.Floor(float64(dim) * fraction))
	if n < 1 {
		return 1
	}
	return n
}

// gapMidpoints converts gap midpoints to source coordinates.
func gapMidpoints(gaps []Gap, scale float64) []int {
	out := make([]int, 0, len(gaps))
	for _, g := range gaps {
		mid := float64(g.Start+g.End) / 2
		out = append(out, int(mid/scale+coordEpsilon))
	}
	return out
}

// Separators runs gap analysis on both brightness profiles.
//
// Row gaps use a minimum length relative to the analysis height, column gaps
// relative to the analysis width.
func (a *Analysis) Separators(p Params) Separators {
	rowGaps := FindGaps(a.RowProfile(), p.GapBrightness, minGapSize(a.height, p.GapFraction))
	colGaps := FindGaps(a.ColumnProfile(), p.GapBrightness, minGapSize(a.width, p.GapFraction))

	return Separators{
		Horizontal: gapMidpoints(rowGaps, a.scaleY),
		Vertical:   gapMidpoints(colGaps, a.scaleX),
	}
}
