package detection

import (
	"image"
	"sort"
)

// bands splits [0, dim) at every cut strictly inside the range.
//
// Duplicate and out-of-range cuts are ignored; the image edges are implicit
// boundaries.
func bands(cuts []int, dim int) [][2]int {
	sorted := append([]int(nil), cuts...)
	sort.Ints(sorted)

	out := make([][2]int, 0, len(sorted)+1)
	prev := 0
	for _, c := range sorted {
		if c <= prev || c >= dim {
			continue
		}
		out = append(out, [2]int{prev, c})
		prev = c
	}
	if prev < dim {
		out = append(out, [2]int{prev, dim})
	}
	return out
}

// GridCells partitions a w × h image into the cross product of the bands
// produced by the horizontal and vertical separators.
//
// Cells are returned row by row, left to right.
func GridCells(seps Separators, w, h int) []image.Rectangle {
	rows := bands(seps.Horizontal, h)
	cols := bands(seps.Vertical, w)

	cells := make([]image.Rectangle, 0, len(rows)*len(cols))
	for _, r := range rows {
		for _, c := range cols {
			cells = append(cells, image.Rect(c[0], r[0], c[1], r[1]))
		}
	}
	return cells
}

// GridRegions builds candidate regions from the separators.
//
// With no separator in either direction there is no grid and the result is
// empty, leaving the page to the content-bounds fallback. Otherwise every
// cell is tightened to the content inside it; cells with no content, or whose
// tightened width or height is below p.MinRegionSize, are dropped.
func (a *Analysis) GridRegions(seps Separators, p Params) []Region {
	if seps.Empty() {
		return nil
	}

	var regions []Region
	for _, cell := range GridCells(seps, a.srcW, a.srcH) {
		tight, ok := a.contentWithin(cell, p.ContentBrightness)
		if !ok {
			continue
		}
		if tight.Dx() < p.MinRegionSize || tight.Dy() < p.MinRegionSize {
			continue
		}
		regions = append(regions, RegionFromRect(tight, p.GridConfidence))
	}
	return regions
}
