package vision

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/ironsheep/scan-splitter/internal/detection"
)

const (
	// MaxRegions caps how many regions a single answer may contribute.
	MaxRegions = 20

	// DefaultConfidence is used when a box carries no usable confidence.
	DefaultConfidence = 0.9
)

// ParseRegions extracts candidate regions from a model answer.
//
// The answer is searched for the first '[' at which a JSON array decodes;
// prose or code fences before and after it are ignored. Elements that are not
// objects, lack a numeric x, y, width or height, or have a width or height of
// zero or less are skipped. At most maxRegions regions are returned (MaxRegions
// when maxRegions is not positive). An answer with nothing usable yields an
// empty slice.
func ParseRegions(text string, maxRegions int) []detection.Region {
	if maxRegions <= 0 {
		maxRegions = MaxRegions
	}

	elems, ok := firstArray(text)
	if !ok {
		return []detection.Region{}
	}

	regions := make([]detection.Region, 0, len(elems))
	for _, raw := range elems {
		if len(regions) >= maxRegions {
			break
		}
		r, ok := parseBox(raw)
		if !ok {
			continue
		}
		regions = append(regions, r)
	}
	return regions
}

// firstArray scans text for the first position where a JSON array decodes.
func firstArray(text string) ([]json.RawMessage, bool) {
	for offset := 0; offset < len(text); {
		i := strings.IndexByte(text[offset:], '[')
		if i < 0 {
			return nil, false
		}
		start := offset + i

		var elems []json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		if err := dec.Decode(&elems); err == nil {
			return elems, true
		}
		offset = start + 1
	}
	return nil, false
}

// parseBox validates one array element.
func parseBox(raw json.RawMessage) (detection.Region, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return detection.Region{}, false
	}

	var box [4]float64
	for i, key := range []string{"x", "y", "width", "height"} {
		v, ok := number(fields[key])
		if !ok {
			return detection.Region{}, false
		}
		box[i] = v
	}

	w := int(math.Round(box[2]))
	h := int(math.Round(box[3]))
	if w <= 0 || h <= 0 {
		return detection.Region{}, false
	}

	confidence := DefaultConfidence
	if c, ok := number(fields["confidence"]); ok {
		confidence = detection.ClampConfidence(c)
	}

	return detection.Region{
		X:          int(math.Round(box[0])),
		Y:          int(math.Round(box[1])),
		Width:      w,
		Height:     h,
		Confidence: confidence,
	}, true
}

// number decodes a JSON number; strings, booleans, null and missing values
// are rejected.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1e9 {
		return 0, false
	}
	return v, true
}
