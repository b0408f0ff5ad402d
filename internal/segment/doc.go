// Package segment turns one scanned page into the list of photos printed on
// it.
//
// A Segmenter runs each request through a fixed sequence of stages:
//
//	AwaitingImage -> [VisionAttempt] -> GapAnalysis -> GridOrFallback
//	  -> Validate -> Merge -> [Pad] -> CropPreviews -> Done
//
// VisionAttempt runs only when the caller asks for it and a vision model is
// configured. When the model's regions survive validation the histogram
// stages are skipped and the regions are padded; any model failure falls
// through to GapAnalysis without surfacing an error.
//
// Requests share no mutable state, so one Segmenter may serve any number of
// concurrent callers.
package segment
