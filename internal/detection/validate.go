package detection

// Validate keeps the regions that are at least minSize pixels on both axes
// and cover no more than maxAreaFraction of the imgW × imgH page.
//
// The same predicate serves every detection path: deterministic regions use
// Params.MinRegionSize, vision-model regions the looser
// Params.VisionMinRegionSize. Applying Validate to its own output returns the
// same regions.
func Validate(regions []Region, imgW, imgH, minSize int, maxAreaFraction float64) []Region {
	maxArea := maxAreaFraction * float64(imgW) * float64(imgH)

	valid := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		if r.Width < minSize || r.Height < minSize {
			continue
		}
		if float64(r.Area()) > maxArea {
			continue
		}
		valid = append(valid, r)
	}
	return valid
}
