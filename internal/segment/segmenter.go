package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/scan-splitter/internal/detection"
	"github.com/ironsheep/scan-splitter/internal/imaging"
	"github.com/ironsheep/scan-splitter/internal/observability"
	"github.com/ironsheep/scan-splitter/internal/vision"
)

// VisionDetector asks an external model for photo boxes and returns its raw
// text answer. *vision.Client implements it.
type VisionDetector interface {
	Detect(ctx context.Context, data []byte, mimeType string, width, height int) (string, error)
}

// Archiver stores full-resolution crops of the final regions.
// *storage.CropStore implements it.
type Archiver interface {
	Archive(ctx context.Context, requestID string, img image.Image, regions []detection.Region) error
}

// Options tunes a Segmenter. Zero fields take DefaultOptions values.
type Options struct {
	Params detection.Params

	// VisionTimeout bounds the single vision-model call.
	VisionTimeout time.Duration

	// MaxVisionRegions caps the regions taken from one model answer.
	MaxVisionRegions int

	PreviewMaxDim  int
	PreviewQuality int

	// PreviewWorkers limits how many previews are encoded at once.
	PreviewWorkers int

	// MaxPixels rejects pages whose header declares more pixels.
	MaxPixels int

	// BoxColor is the "#RRGGBB" outline colour used by Annotate.
	BoxColor string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Params:           detection.DefaultParams(),
		VisionTimeout:    30 * time.Second,
		MaxVisionRegions: vision.MaxRegions,
		PreviewMaxDim:    200,
		PreviewQuality:   60,
		PreviewWorkers:   4,
		MaxPixels:        imaging.DefaultMaxPixels,
		BoxColor:         "#FF0000",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	o.Params = o.Params.WithDefaults()
	if o.VisionTimeout <= 0 {
		o.VisionTimeout = d.VisionTimeout
	}
	if o.MaxVisionRegions <= 0 {
		o.MaxVisionRegions = d.MaxVisionRegions
	}
	if o.PreviewMaxDim <= 0 {
		o.PreviewMaxDim = d.PreviewMaxDim
	}
	if o.PreviewQuality <= 0 {
		o.PreviewQuality = d.PreviewQuality
	}
	if o.PreviewWorkers <= 0 {
		o.PreviewWorkers = d.PreviewWorkers
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = d.MaxPixels
	}
	if o.BoxColor == "" {
		o.BoxColor = d.BoxColor
	}
	return o
}

// Request is one page to segment.
type Request struct {
	// Image holds the encoded page (PNG, JPEG, GIF, BMP, TIFF or WebP).
	Image []byte

	// UseAI asks for the vision model before the histogram path.
	UseAI bool

	// RequestID is generated when empty.
	RequestID string

	// SkipPreviews leaves Preview and AverageColor empty.
	SkipPreviews bool
}

// Segmenter detects photos on scanned pages.
type Segmenter struct {
	opts     Options
	vision   VisionDetector
	archiver Archiver
}

// New creates a Segmenter. detector and archiver may be nil; without a
// detector UseAI is ignored, without an archiver no crops are stored.
func New(opts Options, detector VisionDetector, archiver Archiver) *Segmenter {
	return &Segmenter{
		opts:     opts.withDefaults(),
		vision:   detector,
		archiver: archiver,
	}
}

// Options returns the effective options.
func (s *Segmenter) Options() Options {
	return s.opts
}

// Detect runs the pipeline on one page.
//
// Errors wrap ErrNoImage, ErrUndecodable or ErrInternal. A page without
// photos is not an error: the result is successful with no photos.
func (s *Segmenter) Detect(ctx context.Context, req Request) (*DetectionResult, error) {
	res, _, err := s.run(ctx, req)
	return res, err
}

// Annotate runs the pipeline without previews and draws the detected boxes
// on the page, labelled with their index.
func (s *Segmenter) Annotate(ctx context.Context, req Request) (*imaging.OverlayResult, *DetectionResult, error) {
	req.SkipPreviews = true
	res, img, err := s.run(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	boxes := make([]imaging.Box, 0, len(res.Photos))
	for i, p := range res.Photos {
		boxes = append(boxes, imaging.Box{Rect: p.Rect(), Label: fmt.Sprintf("%d", i)})
	}

	thickness := max(2, min(res.OriginalWidth, res.OriginalHeight)/200)
	overlay, err := imaging.Annotate(img, boxes, thickness, s.opts.BoxColor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return overlay, res, nil
}

func (s *Segmenter) run(ctx context.Context, req Request) (res *DetectionResult, img image.Image, err error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	p := &pipeline{
		s:   s,
		ctx: ctx,
		req: req,
		log: logrus.WithFields(logrus.Fields{
			"request_id": req.RequestID,
			"use_ai":     req.UseAI,
		}),
		method: MethodNone,
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.log.WithField("panic", rec).Error("Recovered from panic during segmentation")
			res, img, err = nil, nil, internalError(rec)
		}
	}()

	if err := p.execute(); err != nil {
		return nil, nil, err
	}

	observability.Detections.WithLabelValues(string(p.method)).Inc()
	observability.PhotosDetected.WithLabelValues(string(p.method)).Add(float64(len(p.regions)))

	p.log.WithFields(logrus.Fields{
		"method": p.method,
		"photos": len(p.regions),
		"width":  p.info.Width,
		"height": p.info.Height,
	}).Info("Segmentation complete")

	return &DetectionResult{
		Success:        true,
		Photos:         p.regions,
		OriginalWidth:  p.info.Width,
		OriginalHeight: p.info.Height,
		RequestID:      req.RequestID,
		Method:         p.method,
		Trace:          p.trace,
	}, p.img, nil
}

// pipeline holds the state of one request as it moves through the stages.
type pipeline struct {
	s   *Segmenter
	ctx context.Context
	req Request
	log *logrus.Entry

	img      image.Image
	info     *imaging.ImageInfo
	analysis *detection.Analysis

	regions    []detection.Region
	fromVision bool
	method     Method
	trace      []Stage
}

// execute drives the state machine until Done or an error.
func (p *pipeline) execute() error {
	stage := StageAwaitingImage
	for {
		p.trace = append(p.trace, stage)
		if stage == StageDone {
			return nil
		}

		start := time.Now()
		next, err := p.step(stage)
		observability.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		stage = next
	}
}

func (p *pipeline) step(stage Stage) (Stage, error) {
	switch stage {
	case StageAwaitingImage:
		return p.awaitImage()
	case StageVisionAttempt:
		return p.visionAttempt(), nil
	case StageGapAnalysis:
		return p.gapAnalysis(), nil
	case StageGridOrFallback:
		return p.gridOrFallback(), nil
	case StageValidate:
		return p.validate(), nil
	case StageMerge:
		return p.merge(), nil
	case StagePad:
		return p.pad(), nil
	case StageCropPreviews:
		return p.cropPreviews(), nil
	default:
		return StageDone, internalError(fmt.Sprintf("unknown stage %q", stage))
	}
}

func (p *pipeline) awaitImage() (Stage, error) {
	img, info, err := imaging.Decode(p.req.Image, p.s.opts.MaxPixels)
	switch {
	case errors.Is(err, imaging.ErrEmptyInput):
		return StageDone, ErrNoImage
	case err != nil:
		return StageDone, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	p.img = img
	p.info = info
	p.log = p.log.WithFields(logrus.Fields{"width": info.Width, "height": info.Height})

	if p.req.UseAI && p.s.vision != nil {
		return StageVisionAttempt, nil
	}
	return StageGapAnalysis, nil
}

func (p *pipeline) visionAttempt() Stage {
	ctx, cancel := context.WithTimeout(p.ctx, p.s.opts.VisionTimeout)
	defer cancel()

	mime := imaging.MimeType(p.info.Format)
	text, err := p.s.vision.Detect(ctx, p.req.Image, mime, p.info.Width, p.info.Height)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		observability.VisionFailures.WithLabelValues(reason).Inc()
		p.log.WithError(err).WithField("reason", reason).Warn("Vision model failed, using histogram detection")
		return StageGapAnalysis
	}

	parsed := vision.ParseRegions(text, p.s.opts.MaxVisionRegions)
	regions := make([]detection.Region, 0, len(parsed))
	for _, r := range parsed {
		if clamped, ok := detection.ClampToImage(r, p.info.Width, p.info.Height); ok {
			regions = append(regions, clamped)
		}
	}
	if len(regions) == 0 {
		observability.VisionFailures.WithLabelValues("empty").Inc()
		p.log.WithField("answer_length", len(text)).Warn("Vision model returned no usable regions, using histogram detection")
		return StageGapAnalysis
	}

	p.regions = regions
	p.fromVision = true
	p.method = MethodVision
	return StageValidate
}

func (p *pipeline) gapAnalysis() Stage {
	params := p.s.opts.Params
	p.analysis = detection.NewAnalysis(p.img, params.AnalysisMaxDim)
	p.regions = nil

	if p.analysis.IsBlank(params.ContentBrightness) {
		p.log.Debug("Page is blank")
		p.method = MethodNone
		return StageValidate
	}
	return StageGridOrFallback
}

func (p *pipeline) gridOrFallback() Stage {
	params := p.s.opts.Params
	seps := p.analysis.Separators(params)

	if regions := p.analysis.GridRegions(seps, params); len(regions) > 0 {
		p.regions = regions
		p.method = MethodGrid
		p.log.WithFields(logrus.Fields{
			"horizontal": len(seps.Horizontal),
			"vertical":   len(seps.Vertical),
			"cells":      len(regions),
		}).Debug("Grid detection found photos")
		return StageValidate
	}

	if r, ok := p.analysis.ContentBounds(params); ok {
		p.regions = []detection.Region{r}
		p.method = MethodFallback
		p.log.WithField("region", r.String()).Debug("Using content bounds fallback")
		return StageValidate
	}

	p.method = MethodNone
	return StageValidate
}

func (p *pipeline) validate() Stage {
	params := p.s.opts.Params
	minSize := params.MinRegionSize
	if p.fromVision {
		minSize = params.VisionMinRegionSize
	}

	p.regions = detection.Validate(p.regions, p.info.Width, p.info.Height, minSize, params.MaxAreaFraction)

	if len(p.regions) == 0 {
		if p.fromVision {
			observability.VisionFailures.WithLabelValues("invalid").Inc()
			p.log.Warn("No vision regions passed validation, using histogram detection")
			p.fromVision = false
			p.method = MethodNone
			return StageGapAnalysis
		}
		p.method = MethodNone
	}
	return StageMerge
}

func (p *pipeline) merge() Stage {
	p.regions = detection.Merge(p.regions, p.s.opts.Params.MergeThreshold)
	if p.fromVision {
		return StagePad
	}
	return StageCropPreviews
}

// pad grows vision regions, then merges and validates again: padding can push
// a pair over the merge threshold and a union over the area limit.
func (p *pipeline) pad() Stage {
	params := p.s.opts.Params
	padded := detection.PadAll(p.regions, p.info.Width, p.info.Height, params.PaddingFraction)
	merged := detection.Merge(padded, params.MergeThreshold)
	p.regions = detection.Validate(merged, p.info.Width, p.info.Height, params.VisionMinRegionSize, params.MaxAreaFraction)

	if len(p.regions) == 0 {
		observability.VisionFailures.WithLabelValues("invalid").Inc()
		p.log.Warn("No padded vision regions passed validation, using histogram detection")
		p.fromVision = false
		p.method = MethodNone
		return StageGapAnalysis
	}
	return StageCropPreviews
}

func (p *pipeline) cropPreviews() Stage {
	if p.regions == nil {
		p.regions = []detection.Region{}
	}
	for i := range p.regions {
		p.regions[i].ID = fmt.Sprintf("photo_%d", i)
	}

	if !p.req.SkipPreviews {
		attachPreviews(p.img, p.regions, p.s.opts, p.log)
	}

	if p.s.archiver != nil && len(p.regions) > 0 {
		if err := p.s.archiver.Archive(p.ctx, p.req.RequestID, p.img, p.regions); err != nil {
			p.log.WithError(err).Warn("Failed to archive crops")
		}
	}
	return StageDone
}
