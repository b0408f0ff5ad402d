package detection

// Merge collapses regions that describe the same photo.
//
// While any pair has IoU above threshold, the pair is replaced by the
// bounding box of both carrying the higher confidence. The merged region
// takes the earlier region's position, so detection order is otherwise
// preserved. Every merge shortens the list, so the loop always reaches a
// fixed point. The input slice is not modified.
func Merge(regions []Region, threshold float64) []Region {
	out := make([]Region, len(regions))
	copy(out, regions)

	for {
		i, j, found := findOverlap(out, threshold)
		if !found {
			return out
		}
		out[i] = union(out[i], out[j])
		out = append(out[:j], out[j+1:]...)
	}
}

// findOverlap returns the first pair (i < j) whose IoU exceeds threshold.
func findOverlap(regions []Region, threshold float64) (int, int, bool) {
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if IoU(regions[i], regions[j]) > threshold {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// union returns the bounding box of a and b with the higher confidence.
func union(a, b Region) Region {
	merged := RegionFromRect(a.Rect().Union(b.Rect()), a.Confidence)
	if b.Confidence > merged.Confidence {
		merged.Confidence = b.Confidence
	}
	merged.ID = a.ID
	return merged
}
