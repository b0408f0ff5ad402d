package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/scan-splitter/internal/segment"
)

var errTooLarge = errors.New("image exceeds the upload size limit")

type PhotoHandler struct {
	seg       *segment.Segmenter
	maxUpload int64
}

func NewPhotoHandler(seg *segment.Segmenter, maxUpload int64) *PhotoHandler {
	return &PhotoHandler{seg: seg, maxUpload: maxUpload}
}

// Detect handles POST /v1/photos/detect.
//
// Form fields: file (the scanned page) and useAI ("true" to try the vision
// model first).
func (h *PhotoHandler) Detect(c *gin.Context) {
	req, err := h.readRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.seg.Detect(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Annotate handles POST /v1/photos/annotate and returns the page as PNG with
// the detected boxes drawn on it.
func (h *PhotoHandler) Annotate(c *gin.Context) {
	req, err := h.readRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	overlay, res, err := h.seg.Annotate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Photo-Count", strconv.Itoa(len(res.Photos)))
	c.Data(http.StatusOK, overlay.MimeType, overlay.PNG)
}

func (h *PhotoHandler) readRequest(c *gin.Context) (segment.Request, error) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return segment.Request{}, errTooLarge
		}
		return segment.Request{}, fmt.Errorf("%w: %v", segment.ErrNoImage, err)
	}

	f, err := fh.Open()
	if err != nil {
		return segment.Request{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return segment.Request{}, fmt.Errorf("read upload: %w", err)
	}

	useAI, _ := strconv.ParseBool(c.PostForm("useAI"))

	return segment.Request{
		Image:     data,
		UseAI:     useAI,
		RequestID: c.GetString(requestIDKey),
	}, nil
}

// respondError writes the failure shape: 400 with the reason for input
// errors, 500 with a generic message otherwise.
func respondError(c *gin.Context, err error) {
	res := segment.ErrorResult(err)
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errTooLarge):
		status = http.StatusBadRequest
		res.Error = err.Error()
	case segment.IsInputError(err):
		status = http.StatusBadRequest
	default:
		logrus.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("Photo detection failed")
	}

	c.JSON(status, res)
}
