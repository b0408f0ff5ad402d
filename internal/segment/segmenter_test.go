package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/ironsheep/scan-splitter/internal/detection"
	"github.com/ironsheep/scan-splitter/internal/imaging"
	"github.com/ironsheep/scan-splitter/internal/vision"
)

// createScanPNG encodes a white page with dark prints at the given rectangles
func createScanPNG(t *testing.T, width, height int, prints ...image.Rectangle) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, p := range prints {
		for y := p.Min.Y; y < p.Max.Y; y++ {
			for x := p.Min.X; x < p.Max.X; x++ {
				img.Set(x, y, color.RGBA{uint8(40 + x%50), 30, uint8(20 + y%40), 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func twoPhotoPage(t *testing.T) []byte {
	return createScanPNG(t, 1000, 500,
		image.Rect(0, 50, 400, 450),
		image.Rect(600, 50, 1000, 450),
	)
}

type fakeDetector struct {
	answer string
	err    error
	calls  int
}

func (f *fakeDetector) Detect(ctx context.Context, data []byte, mimeType string, width, height int) (string, error) {
	f.calls++
	return f.answer, f.err
}

type blockingDetector struct{}

func (blockingDetector) Detect(ctx context.Context, data []byte, mimeType string, width, height int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type panickingDetector struct{}

func (panickingDetector) Detect(ctx context.Context, data []byte, mimeType string, width, height int) (string, error) {
	panic("model client exploded")
}

// fakeModel is an llms.Model that always gives the same answer.
type fakeModel struct {
	answer string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.answer, nil
}

type fakeArchiver struct {
	mu        sync.Mutex
	requestID string
	regions   []detection.Region
	err       error
}

func (f *fakeArchiver) Archive(ctx context.Context, requestID string, img image.Image, regions []detection.Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestID = requestID
	f.regions = append([]detection.Region(nil), regions...)
	return f.err
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func traceContains(trace []Stage, stage Stage) bool {
	for _, s := range trace {
		if s == stage {
			return true
		}
	}
	return false
}

func TestDetect_TwoPhotoGrid(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)

	res, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t)})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if !res.Success {
		t.Error("expected success")
	}
	if res.OriginalWidth != 1000 || res.OriginalHeight != 500 {
		t.Errorf("dimensions: got %dx%d", res.OriginalWidth, res.OriginalHeight)
	}
	if res.Method != MethodGrid {
		t.Errorf("method: got %q, want grid", res.Method)
	}
	if len(res.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d: %v", len(res.Photos), res.Photos)
	}

	for i, p := range res.Photos {
		if want := []string{"photo_0", "photo_1"}[i]; p.ID != want {
			t.Errorf("photo %d: id %q, want %q", i, p.ID, want)
		}
		if absInt(p.Width-400) > 20 || absInt(p.Height-400) > 20 {
			t.Errorf("photo %d: size %dx%d, want within 5%% of 400x400", i, p.Width, p.Height)
		}
		if !strings.HasPrefix(p.Preview, "data:image/jpeg;base64,") {
			t.Errorf("photo %d: missing preview", i)
		}
		if len(p.AverageColor) != 7 || p.AverageColor[0] != '#' {
			t.Errorf("photo %d: average color %q", i, p.AverageColor)
		}
	}

	wantTrace := []Stage{
		StageAwaitingImage, StageGapAnalysis, StageGridOrFallback,
		StageValidate, StageMerge, StageCropPreviews, StageDone,
	}
	if len(res.Trace) != len(wantTrace) {
		t.Fatalf("trace: got %v, want %v", res.Trace, wantTrace)
	}
	for i := range wantTrace {
		if res.Trace[i] != wantTrace[i] {
			t.Errorf("trace[%d]: got %q, want %q", i, res.Trace[i], wantTrace[i])
		}
	}
}

func TestDetect_SinglePhotoFill(t *testing.T) {
	page := createScanPNG(t, 800, 600, image.Rect(10, 10, 790, 590))
	s := New(DefaultOptions(), nil, nil)

	res, err := s.Detect(context.Background(), Request{Image: page})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if res.Method != MethodFallback {
		t.Errorf("method: got %q, want fallback", res.Method)
	}
	if len(res.Photos) != 1 {
		t.Fatalf("expected 1 photo, got %d: %v", len(res.Photos), res.Photos)
	}
	p := res.Photos[0]
	if absInt(p.X-10) > 2 || absInt(p.Y-10) > 2 || absInt(p.Width-780) > 4 || absInt(p.Height-580) > 4 {
		t.Errorf("got %v, want about 780x580+10+10", p)
	}
	if p.Confidence != 0.7 {
		t.Errorf("confidence: got %v, want 0.7", p.Confidence)
	}
}

func TestDetect_BlankPage(t *testing.T) {
	page := createScanPNG(t, 500, 500)
	s := New(DefaultOptions(), nil, nil)

	res, err := s.Detect(context.Background(), Request{Image: page})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.Photos == nil || len(res.Photos) != 0 {
		t.Errorf("expected empty photo list, got %v", res.Photos)
	}
	if res.Method != MethodNone {
		t.Errorf("method: got %q, want none", res.Method)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"success":true,"photos":[],"originalWidth":500,"originalHeight":500}`
	if string(data) != want {
		t.Errorf("JSON: got %s, want %s", data, want)
	}
}

func TestDetect_InputErrors(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"no bytes", nil, ErrNoImage},
		{"garbage", []byte("definitely not an image"), ErrUndecodable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Detect(context.Background(), Request{Image: tt.data})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("expected nil result, got %+v", res)
			}
			if !IsInputError(err) {
				t.Error("expected input error")
			}
		})
	}
}

func TestDetect_MalformedVisionAnswer(t *testing.T) {
	client := vision.NewWithModel("ollama", "llava", &fakeModel{answer: "Sure! Here are the boxes: not json"})
	s := New(DefaultOptions(), client, nil)

	res, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t), UseAI: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if res.Method != MethodGrid {
		t.Errorf("method: got %q, want grid", res.Method)
	}
	if len(res.Photos) != 2 {
		t.Errorf("expected 2 photos from the histogram path, got %d", len(res.Photos))
	}
	if !traceContains(res.Trace, StageVisionAttempt) || !traceContains(res.Trace, StageGapAnalysis) {
		t.Errorf("trace should show the attempt and the fallback: %v", res.Trace)
	}

	// Same photos as a plain histogram run
	plain, err := New(DefaultOptions(), nil, nil).Detect(context.Background(), Request{Image: twoPhotoPage(t)})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for i := range plain.Photos {
		if res.Photos[i].Rect() != plain.Photos[i].Rect() {
			t.Errorf("photo %d: got %v, want %v", i, res.Photos[i], plain.Photos[i])
		}
	}
}

func TestDetect_VisionRegions(t *testing.T) {
	detector := &fakeDetector{answer: `Here you go:
[{"x":100,"y":100,"width":300,"height":300,"confidence":0.8},
 {"x":110,"y":105,"width":300,"height":300}]`}
	s := New(DefaultOptions(), detector, nil)

	res, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t), UseAI: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if res.Method != MethodVision {
		t.Fatalf("method: got %q, want vision", res.Method)
	}
	if len(res.Photos) != 1 {
		t.Fatalf("expected overlapping boxes to merge into 1, got %v", res.Photos)
	}

	// Merged to 310x305+100+100, then padded by 10px and 5px
	p := res.Photos[0]
	if p.X != 90 || p.Y != 95 || p.Width != 330 || p.Height != 315 {
		t.Errorf("got %v, want 330x315+90+95", p)
	}
	if p.Confidence != vision.DefaultConfidence {
		t.Errorf("confidence: got %v, want %v", p.Confidence, vision.DefaultConfidence)
	}
	if p.ID != "photo_0" {
		t.Errorf("id: got %q", p.ID)
	}
	if traceContains(res.Trace, StageGapAnalysis) {
		t.Errorf("histogram path should be skipped: %v", res.Trace)
	}
	if !traceContains(res.Trace, StagePad) {
		t.Errorf("vision regions should be padded: %v", res.Trace)
	}
}

func TestDetect_VisionPaddingMergesAgain(t *testing.T) {
	// IoU 0.498 as returned, 0.533 once both boxes grow by 10px
	detector := &fakeDetector{answer: `[{"x":100,"y":100,"width":200,"height":200,"confidence":0.6},
 {"x":167,"y":100,"width":200,"height":200,"confidence":0.8}]`}
	s := New(DefaultOptions(), detector, nil)

	res, err := s.Detect(context.Background(), Request{Image: createScanPNG(t, 1000, 1000), UseAI: true, SkipPreviews: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if res.Method != MethodVision {
		t.Fatalf("method: got %q, want vision", res.Method)
	}
	if len(res.Photos) != 1 {
		t.Fatalf("expected padded boxes to merge into 1, got %v", res.Photos)
	}

	p := res.Photos[0]
	if p.X != 90 || p.Y != 90 || p.Width != 287 || p.Height != 220 {
		t.Errorf("got %v, want 287x220+90+90", p)
	}
	if p.Confidence != 0.8 {
		t.Errorf("confidence: got %v, want 0.8", p.Confidence)
	}
}

func TestDetect_VisionPaddingExceedsAreaLimit(t *testing.T) {
	// 980x980 fits the 0.98 area limit; padded to the full page it does not
	detector := &fakeDetector{answer: `[{"x":10,"y":10,"width":980,"height":980}]`}
	s := New(DefaultOptions(), detector, nil)

	page := createScanPNG(t, 1000, 1000, image.Rect(100, 100, 500, 500))
	res, err := s.Detect(context.Background(), Request{Image: page, UseAI: true, SkipPreviews: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if res.Method == MethodVision {
		t.Errorf("page-sized vision box should not survive padding: %v", res.Photos)
	}
	if !traceContains(res.Trace, StagePad) || !traceContains(res.Trace, StageGapAnalysis) {
		t.Errorf("expected pad then histogram detection: %v", res.Trace)
	}
	for _, photo := range res.Photos {
		if photo.Width*photo.Height > 980000 {
			t.Errorf("%v exceeds the area limit", photo)
		}
	}
}

func TestDetect_VisionFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		detector VisionDetector
	}{
		{"model error", &fakeDetector{err: errors.New("connection refused")}},
		{"timeout", blockingDetector{}},
		{"boxes outside image", &fakeDetector{answer: `[{"x":5000,"y":5000,"width":100,"height":100}]`}},
		{"boxes too small", &fakeDetector{answer: `[{"x":10,"y":10,"width":20,"height":20}]`}},
		{"empty array", &fakeDetector{answer: `[]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.VisionTimeout = 20 * time.Millisecond
			s := New(opts, tt.detector, nil)

			res, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t), UseAI: true})
			if err != nil {
				t.Fatalf("vision failure must not fail the request: %v", err)
			}
			if res.Method != MethodGrid || len(res.Photos) != 2 {
				t.Errorf("expected histogram fallback with 2 photos, got %q with %d", res.Method, len(res.Photos))
			}
		})
	}
}

func TestDetect_UseAIWithoutDetector(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)

	res, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t), UseAI: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if traceContains(res.Trace, StageVisionAttempt) {
		t.Errorf("no vision attempt expected: %v", res.Trace)
	}
}

func TestDetect_NoAIDoesNotCallModel(t *testing.T) {
	detector := &fakeDetector{answer: "[]"}
	s := New(DefaultOptions(), detector, nil)

	if _, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t)}); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if detector.calls != 0 {
		t.Errorf("model called %d times", detector.calls)
	}
}

func TestDetect_PanicRecovered(t *testing.T) {
	s := New(DefaultOptions(), panickingDetector{}, nil)

	_, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t), UseAI: true})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if msg := ErrorResult(err).Error; msg != "failed to process image" {
		t.Errorf("internal details leaked: %q", msg)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	page := createScanPNG(t, 1000, 1000,
		image.Rect(50, 50, 450, 450),
		image.Rect(550, 50, 950, 450),
		image.Rect(50, 550, 450, 950),
	)
	s := New(DefaultOptions(), nil, nil)

	first, err := s.Detect(context.Background(), Request{Image: page})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	second, err := s.Detect(context.Background(), Request{Image: page})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(first.Photos) != 3 || len(first.Photos) != len(second.Photos) {
		t.Fatalf("got %d and %d photos, want 3", len(first.Photos), len(second.Photos))
	}
	for i := range first.Photos {
		if first.Photos[i] != second.Photos[i] {
			t.Errorf("photo %d differs: %v vs %v", i, first.Photos[i], second.Photos[i])
		}
	}
}

func TestDetect_OutputInvariants(t *testing.T) {
	pages := [][]byte{
		twoPhotoPage(t),
		createScanPNG(t, 800, 600, image.Rect(10, 10, 790, 590)),
		createScanPNG(t, 1200, 900,
			image.Rect(40, 40, 580, 430),
			image.Rect(620, 40, 1160, 430),
			image.Rect(40, 470, 580, 860),
			image.Rect(620, 470, 1160, 860),
		),
	}
	s := New(DefaultOptions(), nil, nil)

	for n, page := range pages {
		res, err := s.Detect(context.Background(), Request{Image: page, SkipPreviews: true})
		if err != nil {
			t.Fatalf("page %d: Detect failed: %v", n, err)
		}
		for i, a := range res.Photos {
			if a.X < 0 || a.Y < 0 || a.X+a.Width > res.OriginalWidth || a.Y+a.Height > res.OriginalHeight {
				t.Errorf("page %d: %v leaves the image", n, a)
			}
			if a.Width < 100 || a.Height < 100 {
				t.Errorf("page %d: %v below minimum size", n, a)
			}
			if a.Preview != "" {
				t.Errorf("page %d: preview present despite SkipPreviews", n)
			}
			for _, b := range res.Photos[i+1:] {
				if iou := detection.IoU(a, b); iou > 0.5 {
					t.Errorf("page %d: %v and %v overlap (IoU %.2f)", n, a, b, iou)
				}
			}
		}
	}
}

func TestDetect_Archive(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("bucket missing")}
	s := New(DefaultOptions(), nil, archiver)

	res, err := s.Detect(context.Background(), Request{Image: twoPhotoPage(t), RequestID: "req-42"})
	if err != nil {
		t.Fatalf("archive failure must not fail the request: %v", err)
	}
	if res.RequestID != "req-42" {
		t.Errorf("request id: got %q", res.RequestID)
	}
	if archiver.requestID != "req-42" {
		t.Errorf("archived under %q", archiver.requestID)
	}
	if len(archiver.regions) != 2 || archiver.regions[1].ID != "photo_1" {
		t.Errorf("archived regions: %v", archiver.regions)
	}
}

func TestDetect_GeneratesRequestID(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)

	res, err := s.Detect(context.Background(), Request{Image: createScanPNG(t, 200, 200)})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(res.RequestID) != 36 {
		t.Errorf("expected a UUID request id, got %q", res.RequestID)
	}
}

func TestAnnotate(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)

	overlay, res, err := s.Annotate(context.Background(), Request{Image: twoPhotoPage(t)})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if overlay.Boxes != 2 || len(res.Photos) != 2 {
		t.Errorf("boxes: got %d, photos %d", overlay.Boxes, len(res.Photos))
	}
	if res.Photos[0].Preview != "" {
		t.Error("annotate should not build previews")
	}

	img, err := png.Decode(bytes.NewReader(overlay.PNG))
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 1000 || img.Bounds().Dy() != 500 {
		t.Errorf("overlay size: got %v", img.Bounds())
	}
}

func TestAnnotate_BoxColor(t *testing.T) {
	opts := DefaultOptions()
	opts.BoxColor = "#00FF00"
	s := New(opts, nil, nil)

	overlay, res, err := s.Annotate(context.Background(), Request{Image: twoPhotoPage(t)})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(overlay.PNG))
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}

	for _, p := range res.Photos {
		r, g, b, _ := img.At(p.X+p.Width/2, p.Y).RGBA()
		if r>>8 != 0 || g>>8 != 255 || b>>8 != 0 {
			t.Errorf("%v: top edge pixel got (%d,%d,%d), want green", p, r>>8, g>>8, b>>8)
		}
	}
}

func TestDetect_PixelLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPixels = 10000
	s := New(opts, nil, nil)

	_, err := s.Detect(context.Background(), Request{Image: createScanPNG(t, 200, 200)})
	if !errors.Is(err, ErrUndecodable) || !errors.Is(err, imaging.ErrTooManyPixels) {
		t.Fatalf("expected ErrUndecodable wrapping ErrTooManyPixels, got %v", err)
	}
	if !IsInputError(err) {
		t.Error("oversized page should be an input error")
	}
}

func TestAnnotate_InputError(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)

	if _, _, err := s.Annotate(context.Background(), Request{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}

func TestErrorResult(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"no image", ErrNoImage, "no image provided"},
		{"undecodable", ErrUndecodable, "image could not be decoded"},
		{"internal", internalError("nil map"), "failed to process image"},
		{"unknown", errors.New("boom"), "failed to process image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ErrorResult(tt.err)
			if res.Success {
				t.Error("expected failure")
			}
			if res.Error != tt.wantMsg {
				t.Errorf("message: got %q, want %q", res.Error, tt.wantMsg)
			}

			data, err := json.Marshal(res)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if !strings.Contains(string(data), `"photos":[]`) {
				t.Errorf("photos should serialize as an empty array: %s", data)
			}
		})
	}
}
