package vision

import "fmt"

const promptTemplate = `This image is a scan of a page with one or more printed photographs on it.
The image is %d pixels wide and %d pixels tall.

Find every individual photograph. For each one, give its bounding box in absolute pixel
coordinates of this image, including the photo's own border but not the page background.

Respond with ONLY a JSON array and no other text, in this form:
[{"x": 0, "y": 0, "width": 100, "height": 100, "confidence": 0.95}]

If there are no photographs, respond with [].`

// BuildPrompt returns the instruction sent alongside an image of the given
// size.
func BuildPrompt(width, height int) string {
	return fmt.Sprintf(promptTemplate, width, height)
}
