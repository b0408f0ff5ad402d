package segment

import (
	"github.com/ironsheep/scan-splitter/internal/detection"
)

// Stage names one state of the segmentation pipeline.
type Stage string

const (
	StageAwaitingImage  Stage = "awaiting_image"
	StageVisionAttempt  Stage = "vision_attempt"
	StageGapAnalysis    Stage = "gap_analysis"
	StageGridOrFallback Stage = "grid_or_fallback"
	StageValidate       Stage = "validate"
	StageMerge          Stage = "merge"
	StagePad            Stage = "pad"
	StageCropPreviews   Stage = "crop_previews"
	StageDone           Stage = "done"
)

// Method records which detector produced the returned photos.
type Method string

const (
	MethodNone     Method = "none"
	MethodVision   Method = "vision"
	MethodGrid     Method = "grid"
	MethodFallback Method = "fallback"
)

// DetectionResult is the outcome of one request.
type DetectionResult struct {
	Success        bool               `json:"success"`
	Photos         []detection.Region `json:"photos"`
	OriginalWidth  int                `json:"originalWidth"`
	OriginalHeight int                `json:"originalHeight"`
	Error          string             `json:"error,omitempty"`

	// RequestID names the request in logs and archive keys.
	RequestID string `json:"-"`

	// Method is the detector that produced Photos.
	Method Method `json:"-"`

	// Trace lists the stages visited, in order.
	Trace []Stage `json:"-"`
}
