package detection

import "image"

// contentWithin scans the source rectangle src inward from each edge, at
// analysis resolution, for the first row and column holding a pixel darker
// than threshold. The result is in source coordinates and never leaves src.
//
// Returns false when src holds no content.
func (a *Analysis) contentWithin(src image.Rectangle, threshold float64) (image.Rectangle, bool) {
	r := a.toAnalysisRect(src)
	if r.Empty() {
		return image.Rectangle{}, false
	}

	rowHasContent := func(y int) bool {
		for x := r.Min.X; x < r.Max.X; x++ {
			if a.Brightness(x, y) < threshold {
				return true
			}
		}
		return false
	}

	top := -1
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if rowHasContent(y) {
			top = y
			break
		}
	}
	if top < 0 {
		return image.Rectangle{}, false
	}

	bottom := top
	for y := r.Max.Y - 1; y > top; y-- {
		if rowHasContent(y) {
			bottom = y
			break
		}
	}

	colHasContent := func(x int) bool {
		for y := top; y <= bottom; y++ {
			if a.Brightness(x, y) < threshold {
				return true
			}
		}
		return false
	}

	left := r.Min.X
	for x := r.Min.X; x < r.Max.X; x++ {
		if colHasContent(x) {
			left = x
			break
		}
	}

	right := left
	for x := r.Max.X - 1; x > left; x-- {
		if colHasContent(x) {
			right = x
			break
		}
	}

	tight := a.toSourceRect(image.Rect(left, top, right+1, bottom+1)).Intersect(src)
	if tight.Empty() {
		return image.Rectangle{}, false
	}
	return tight, true
}

// ContentBounds finds the single bounding box of non-background content on
// the whole page.
//
// This is the fallback for pages where gap analysis found no grid, typically
// one print filling most of the scan. The region carries
// p.FallbackConfidence. Returns false when the page has no content or the box
// is smaller than p.MinRegionSize on either axis.
func (a *Analysis) ContentBounds(p Params) (Region, bool) {
	rect, ok := a.contentWithin(image.Rect(0, 0, a.srcW, a.srcH), p.ContentBrightness)
	if !ok {
		return Region{}, false
	}
	if rect.Dx() < p.MinRegionSize || rect.Dy() < p.MinRegionSize {
		return Region{}, false
	}
	return RegionFromRect(rect, p.FallbackConfidence), true
}
