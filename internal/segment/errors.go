package segment

import (
	"errors"
	"fmt"

	"github.com/ironsheep/scan-splitter/internal/detection"
)

var (
	// ErrNoImage is returned when the request carries no image bytes.
	ErrNoImage = errors.New("no image provided")

	// ErrUndecodable is returned when the bytes are not a supported image or
	// decode to an empty one.
	ErrUndecodable = errors.New("image could not be decoded")

	// ErrInternal covers unexpected failures inside the pipeline.
	ErrInternal = errors.New("internal segmentation error")
)

// internalMessage is the only detail callers see for internal failures.
const internalMessage = "failed to process image"

// IsInputError reports whether err was caused by the caller's input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoImage) || errors.Is(err, ErrUndecodable)
}

// ErrorResult builds the failure response for err.
//
// Input errors keep their descriptive message; anything else is reported with
// a generic one so internals are not leaked.
func ErrorResult(err error) *DetectionResult {
	msg := internalMessage
	if IsInputError(err) {
		msg = err.Error()
	}
	return &DetectionResult{
		Success: false,
		Photos:  []detection.Region{},
		Error:   msg,
	}
}

func internalError(cause interface{}) error {
	return fmt.Errorf("%w: %v", ErrInternal, cause)
}
