// Package detection locates individual photographs inside a scanned page.
//
// A scan bed holding several prints produces one composite image in which the
// photos are separated by near-white background margins. This package turns
// that image into a list of candidate rectangles using a deterministic,
// brightness-based algorithm, and provides the region hygiene shared by every
// detection path (validation, merging, padding).
//
// # Algorithm Overview
//
//  1. Analysis buffer: the source is downscaled so its longer side is at most
//     Params.AnalysisMaxDim pixels, bounding the cost of every scan below.
//  2. Gap analysis: each row and column gets a mean brightness. Runs of bright
//     samples at least Params.GapFraction of the dimension long are gaps, and
//     each gap midpoint becomes a separator line in source coordinates.
//  3. Grid construction: separators cut the page into bands, the cross product
//     of horizontal and vertical bands forms cells, and each cell is tightened
//     to the content inside it.
//  4. Content bounds: when no grid exists (a single print with no internal
//     gaps), the page is scanned inward from each edge for the first dark
//     line, giving one lower-confidence region.
//
// # Coordinate System
//
// Regions use source-image pixel coordinates with the origin at the top-left
// corner. X and Y are inclusive, X+Width and Y+Height are exclusive.
//
// # Confidence Scores
//
//   - 1.0: grid cell bounded by gaps on every side
//   - 0.7: content-bounds fallback
//   - vision-model regions carry the model's score or a configured default
//
// # Thresholds
//
// Every threshold lives in Params. DefaultParams returns the empirically chosen
// values; none of them has a documented derivation, so callers tune them
// through configuration rather than editing constants.
package detection
