package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/composite"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/record"
	"github.com/teslashibe/go-lens/pkg/surface"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

const (
	testWidth  = 320
	testHeight = 240
)

// normalizedFace returns a level-eyed mesh centred in the frame
func normalizedFace() landmark.Set {
	px := func(x, y float64) landmark.Point {
		return landmark.Pt(x/640, y/480)
	}
	pts := make(landmark.Set, landmark.MeshSize)
	for i := range pts {
		pts[i] = px(320, 240)
	}
	pts[landmark.LeftEyeOuter] = px(250, 220)
	pts[landmark.RightEyeOuter] = px(390, 220)
	pts[landmark.LeftEyeInner] = px(295, 220)
	pts[landmark.RightEyeInner] = px(345, 220)
	pts[landmark.LeftEyeTop] = px(272, 210)
	pts[landmark.LeftEyeBottom] = px(272, 230)
	pts[landmark.RightEyeTop] = px(368, 210)
	pts[landmark.RightEyeBottom] = px(368, 230)
	pts[landmark.LeftTemple] = px(200, 230)
	pts[landmark.RightTemple] = px(440, 230)
	pts[landmark.Forehead] = px(320, 150)
	pts[landmark.Chin] = px(320, 360)
	pts[landmark.NoseTip] = px(320, 270)
	pts[landmark.BetweenEyes] = px(320, 220)
	pts[landmark.MouthLeft] = px(270, 310)
	pts[landmark.MouthRight] = px(370, 310)
	pts[landmark.UpperLip] = px(320, 305)
	pts[landmark.LowerLip] = px(320, 315)
	return pts
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fakeSource struct {
	mu    sync.Mutex
	frame image.Image
}

func (f *fakeSource) Frame() (image.Image, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.frame != nil
}

func (f *fakeSource) set(img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = img
}

type fakeDetector struct {
	mu    sync.Mutex
	sets  []landmark.Set
	err   error
	calls int
}

func (f *fakeDetector) Detect(context.Context, image.Image) ([]landmark.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]landmark.Set, len(f.sets))
	for i, s := range f.sets {
		out[i] = s.Clone()
	}
	return out, nil
}

func (f *fakeDetector) Close() error { return nil }

func (f *fakeDetector) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDetector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSegmenter struct {
	mask *gg.Mask
}

func (f *fakeSegmenter) Segment(context.Context, image.Image) (*gg.Mask, error) {
	return f.mask, nil
}

func (f *fakeSegmenter) Close() error { return nil }

type fakeEncoder struct {
	mu     sync.Mutex
	frames int
}

func (f *fakeEncoder) WriteFrame(*image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	return nil
}

func (f *fakeEncoder) Finish() ([]byte, error) { return []byte("mp4"), nil }
func (f *fakeEncoder) MIMEType() string        { return "video/mp4" }

func (f *fakeEncoder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

type harness struct {
	engine   *Engine
	source   *fakeSource
	detector *fakeDetector
	loads    atomic.Int32
}

func newHarness(t *testing.T, segmenter tracking.SegmenterLoader) *harness {
	t.Helper()

	h := &harness{
		source:   &fakeSource{},
		detector: &fakeDetector{sets: []landmark.Set{normalizedFace()}},
	}
	h.source.set(solidFrame(testWidth, testHeight, color.RGBA{R: 180, G: 120, B: 90, A: 255}))

	models := Models{
		Landmarks: func(context.Context) (tracking.LandmarkDetector, error) {
			h.loads.Add(1)
			return h.detector, nil
		},
		Segmenter: segmenter,
		Encoder: func(int, int, float64) (record.Encoder, error) {
			return &fakeEncoder{}, nil
		},
	}
	h.engine = New(DefaultConfig(), h.source, models)
	t.Cleanup(func() { h.engine.Close() })
	return h
}

// initFaces builds the landmark model without starting the loop
func (h *harness) initFaces(t *testing.T) {
	t.Helper()
	if err := h.engine.perception.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) render(t *testing.T) error {
	t.Helper()
	return h.engine.renderFrame(context.Background())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEngine_StartStopIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	e := h.engine

	for i := 0; i < 2; i++ {
		if err := e.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
	}
	if !e.Running() {
		t.Fatal("Running() = false after Start")
	}
	if h.loads.Load() != 1 {
		t.Errorf("landmark model loaded %d times, want 1", h.loads.Load())
	}

	waitFor(t, func() bool { _, ok := e.Latest(); return ok })

	e.Stop()
	e.Stop()

	if e.Running() {
		t.Error("Running() = true after Stop")
	}
	if _, ok := e.Latest(); ok {
		t.Error("snapshot survived Stop")
	}
	if len(e.Faces()) != 0 {
		t.Error("tracked faces survived Stop")
	}
	tel := e.Telemetry()
	if tel.Running || tel.FPS != 0 || tel.Faces != 0 {
		t.Errorf("telemetry after Stop = %+v", tel)
	}

	calls := h.detector.callCount()
	time.Sleep(50 * time.Millisecond)
	if h.detector.callCount() != calls {
		t.Error("frames rendered after Stop returned")
	}

	// Restart reuses the model
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.loads.Load() != 1 {
		t.Errorf("restart reloaded the model")
	}
}

func TestEngine_StartWithoutLandmarkModel(t *testing.T) {
	e := New(DefaultConfig(), &fakeSource{}, Models{})
	defer e.Close()

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !e.Running() {
		t.Error("engine should run without face tracking")
	}
}

func TestEngine_StartContextDoesNotStopLoop(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	calls := h.detector.callCount()
	waitFor(t, func() bool { return h.detector.callCount() > calls+2 })
}

func TestEngine_SetEffect(t *testing.T) {
	h := newHarness(t, nil)
	e := h.engine

	tests := []struct {
		id      string
		wantErr bool
	}{
		{"none", false},
		{"dog", false},
		{"heart_crown", false},
		{"bg_neon", false},
		{"bg_mars", true},
		{"", true},
		{"Dog", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := e.SetEffect(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEffect) {
					t.Errorf("SetEffect(%q) error = %v, want ErrUnknownEffect", tt.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetEffect(%q) error = %v", tt.id, err)
			}
			if e.Effect() != lens.ID(tt.id) {
				t.Errorf("Effect() = %q, want %q", e.Effect(), tt.id)
			}
		})
	}
}

func TestEngine_SetEffectResetsParticlesAndClock(t *testing.T) {
	h := newHarness(t, nil)
	h.initFaces(t)
	e := h.engine

	if err := e.SetEffect(string(lens.Sparkles)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		if err := h.render(t); err != nil {
			t.Fatal(err)
		}
	}
	if e.library.Particles().Len() == 0 {
		t.Fatal("sparkles emitted no particles in 30 frames")
	}
	if e.library.Clock().Now() == 0 {
		t.Fatal("clock did not advance")
	}

	if err := e.SetEffect(string(lens.Dog)); err != nil {
		t.Fatal(err)
	}
	if n := e.library.Particles().Len(); n != 0 {
		t.Errorf("particle pool = %d after SetEffect, want 0", n)
	}
	if now := e.library.Clock().Now(); now != 0 {
		t.Errorf("clock = %v after SetEffect, want 0", now)
	}
}

func TestEngine_IdenticalFramesFreeze(t *testing.T) {
	h := newHarness(t, nil)
	h.initFaces(t)
	e := h.engine

	raw := normalizedFace().ToPixels(testWidth, testHeight)

	for frame := 1; frame <= 10; frame++ {
		if err := h.render(t); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		faces := e.Faces()
		if len(faces) != 1 {
			t.Fatalf("frame %d: %d faces, want 1", frame, len(faces))
		}
		for j, p := range faces[0].Points {
			if math.Abs(p.X-raw[j].X) > 1e-9 || math.Abs(p.Y-raw[j].Y) > 1e-9 {
				t.Fatalf("frame %d point %d = %+v, want %+v", frame, j, p, raw[j])
			}
		}
	}

	if got := e.Telemetry().Faces; got != 1 {
		t.Errorf("telemetry faces = %d, want 1", got)
	}
	if got := e.Telemetry().Frames; got != 10 {
		t.Errorf("telemetry frames = %d, want 10", got)
	}
}

func TestEngine_FaceLostClearsImmediately(t *testing.T) {
	h := newHarness(t, nil)
	h.initFaces(t)

	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	h.detector.mu.Lock()
	h.detector.sets = nil
	h.detector.mu.Unlock()

	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	if n := len(h.engine.Faces()); n != 0 {
		t.Errorf("faces = %d on the first empty frame, want 0", n)
	}
}

func TestEngine_PerceptionErrorSkipsFrame(t *testing.T) {
	h := newHarness(t, nil)
	h.initFaces(t)
	e := h.engine

	if err := e.SetEffect(string(lens.Sunglasses)); err != nil {
		t.Fatal(err)
	}
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	before, _ := e.Latest()
	clock := e.library.Clock().Now()

	h.detector.setErr(errors.New("inference failed"))
	if err := h.render(t); err == nil {
		t.Fatal("renderFrame() should report the perception error")
	}

	after, _ := e.Latest()
	if after.Output != before.Output {
		t.Error("a skipped frame published a new snapshot")
	}
	if e.library.Clock().Now() != clock {
		t.Error("a skipped frame advanced the clock")
	}
	if len(e.Faces()) != 1 {
		t.Error("a skipped frame dropped the tracked face")
	}

	h.detector.setErr(nil)
	if err := h.render(t); err != nil {
		t.Errorf("recovery frame error = %v", err)
	}
}

func TestEngine_LoopSurvivesPerceptionErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.detector.setErr(errors.New("inference failed"))

	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return h.detector.callCount() >= 5 })

	if !h.engine.Running() {
		t.Error("engine stopped after perception errors")
	}
	h.engine.Stop()
}

func TestEngine_ResizesToVideo(t *testing.T) {
	h := newHarness(t, nil)
	e := h.engine

	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	if w, hh := e.surface.Size(); w != testWidth || hh != testHeight {
		t.Fatalf("surface = %dx%d, want %dx%d", w, hh, testWidth, testHeight)
	}

	h.source.set(solidFrame(120, 160, color.RGBA{B: 255, A: 255}))
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	if w, hh := e.surface.Size(); w != 120 || hh != 160 {
		t.Errorf("surface = %dx%d after rotation, want 120x160", w, hh)
	}
}

func TestEngine_NoFrameYet(t *testing.T) {
	h := newHarness(t, nil)
	h.source.set(nil)

	if err := h.render(t); err != nil {
		t.Fatalf("renderFrame() error = %v", err)
	}
	if _, ok := h.engine.Latest(); ok {
		t.Error("snapshot published without a video frame")
	}
	if _, err := h.engine.CaptureFrame(record.FacingUser); !errors.Is(err, record.ErrNoFrame) {
		t.Errorf("CaptureFrame() error = %v, want ErrNoFrame", err)
	}
	if _, err := h.engine.StartRecording(context.Background(), record.FacingUser); !errors.Is(err, record.ErrNoFrame) {
		t.Errorf("StartRecording() error = %v, want ErrNoFrame", err)
	}
}

func TestEngine_BackgroundFallbackBeforeMask(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := newHarness(t, func(context.Context) (tracking.Segmenter, error) {
		<-release
		return nil, errors.New("never loaded")
	})
	e := h.engine

	if err := e.SetEffect(string(lens.Forest)); err != nil {
		t.Fatal(err)
	}
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}

	frame, _ := h.source.Frame()
	scene, _ := e.library.Scene(lens.Forest)
	cfg := e.compositor.Config()

	want := surface.New(testWidth, testHeight)
	want.DrawVideo(frame)
	want.DrawScene(func(dc *gg.Context) {
		scene.Paint(dc, lens.DefaultClockStep, testWidth, testHeight)
	}, cfg.FallbackOpacity, cfg.FallbackBlend)
	want.DrawBadge(cfg.BadgeLabel)

	got := e.surface.Snapshot()
	if !bytes.Equal(got.Pix, want.Snapshot().Pix) {
		t.Error("fallback frame differs from raw video + blended scene + badge")
	}

	if st := e.Telemetry().Segmentation; st != composite.StateLoading.String() {
		t.Errorf("segmentation = %q, want loading", st)
	}
}

func TestEngine_BackgroundWithMask(t *testing.T) {
	mask := gg.NewMask(16, 16)
	mask.Fill(255)

	h := newHarness(t, func(context.Context) (tracking.Segmenter, error) {
		return &fakeSegmenter{mask: mask}, nil
	})
	e := h.engine

	if err := e.SetEffect(string(lens.Space)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-e.segmentation.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("segmenter did not load")
	}

	if err := h.render(t); err != nil {
		t.Fatal(err)
	}

	// A full-person mask covers the scene with the subject
	c := e.surface.Snapshot().RGBAAt(testWidth/2, testHeight/2)
	if c.R < 170 || c.G < 110 || c.B < 80 || c.B > 100 {
		t.Errorf("centre pixel = %v, want the video colour", c)
	}
	if st := e.Telemetry().Segmentation; st != "ready" {
		t.Errorf("segmentation = %q, want ready", st)
	}
}

func TestEngine_SetEffectClearsMask(t *testing.T) {
	mask := gg.NewMask(16, 16)
	mask.Fill(255)

	h := newHarness(t, func(context.Context) (tracking.Segmenter, error) {
		return &fakeSegmenter{mask: mask}, nil
	})
	h.initFaces(t)
	e := h.engine

	if err := e.SetEffect(string(lens.Space)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-e.segmentation.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("segmenter did not load")
	}

	for _, next := range []lens.ID{lens.Forest, lens.Dog} {
		t.Run(string(next), func(t *testing.T) {
			if err := h.render(t); err != nil {
				t.Fatal(err)
			}
			if e.segmentation.Mask() == nil {
				t.Fatal("no mask after a background frame")
			}
			if err := e.SetEffect(string(next)); err != nil {
				t.Fatal(err)
			}
			if e.segmentation.Mask() != nil {
				t.Errorf("mask carried over into %s", next)
			}
		})
	}
}

func TestEngine_BackgroundReportsNoFaces(t *testing.T) {
	h := newHarness(t, func(context.Context) (tracking.Segmenter, error) {
		return &fakeSegmenter{mask: gg.NewMask(16, 16)}, nil
	})
	h.initFaces(t)
	e := h.engine

	if err := e.SetEffect(string(lens.Dog)); err != nil {
		t.Fatal(err)
	}
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	if n := e.Telemetry().Faces; n != 1 {
		t.Fatalf("faces = %d under a face lens, want 1", n)
	}

	if err := e.SetEffect(string(lens.City)); err != nil {
		t.Fatal(err)
	}
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}
	if n := e.Telemetry().Faces; n != 0 {
		t.Errorf("faces = %d under a background scene, want 0", n)
	}
}

func TestEngine_SegmentationFailureLatched(t *testing.T) {
	var loads atomic.Int32
	h := newHarness(t, func(context.Context) (tracking.Segmenter, error) {
		loads.Add(1)
		return nil, errors.New("model missing")
	})
	e := h.engine

	if err := e.SetEffect(string(lens.Beach)); err != nil {
		t.Fatal(err)
	}
	<-e.segmentation.Loaded()

	for i := 0; i < 20; i++ {
		if err := h.render(t); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if err := e.SetEffect(string(lens.City)); err != nil {
		t.Fatal(err)
	}
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}

	if loads.Load() != 1 {
		t.Errorf("segmenter loaded %d times, want 1", loads.Load())
	}
	if st := e.Telemetry().Segmentation; st != "failed" {
		t.Errorf("segmentation = %q, want failed", st)
	}
	if _, ok := e.Latest(); !ok {
		t.Error("fallback path published no frame")
	}
}

func TestEngine_CaptureFrame(t *testing.T) {
	h := newHarness(t, nil)
	h.initFaces(t)
	e := h.engine

	if err := e.SetEffect(string(lens.Cat)); err != nil {
		t.Fatal(err)
	}
	if err := h.render(t); err != nil {
		t.Fatal(err)
	}

	still, err := e.CaptureFrame(record.FacingUser)
	if err != nil {
		t.Fatalf("CaptureFrame() error = %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(still.Data))
	if err != nil {
		t.Fatalf("capture is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != testWidth || img.Bounds().Dy() != testHeight {
		t.Errorf("capture size = %v, want native video size", img.Bounds())
	}
	if still.Effect != lens.Cat || !still.Mirrored {
		t.Errorf("still = %+v", still)
	}

	preview, err := e.Preview(record.FacingEnvironment)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(preview)); err != nil {
		t.Errorf("preview is not a JPEG: %v", err)
	}
}

func TestEngine_Recording(t *testing.T) {
	h := newHarness(t, nil)
	e := h.engine

	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { _, ok := e.Latest(); return ok })

	id, err := e.StartRecording(context.Background(), record.FacingUser)
	if err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if !e.Telemetry().Recording {
		t.Error("telemetry does not show recording")
	}

	// Effect changes do not interrupt the recording
	if err := e.SetEffect(string(lens.Rainbow)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)

	rec, err := e.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if rec.ID != id || rec.Frames == 0 {
		t.Errorf("recording = %+v", rec)
	}
	if _, err := e.StopRecording(); !errors.Is(err, record.ErrNotRecording) {
		t.Errorf("second StopRecording() error = %v, want ErrNotRecording", err)
	}
}

type telemetrySink struct {
	mu   sync.Mutex
	last []Telemetry
}

func (s *telemetrySink) UpdateTelemetry(t Telemetry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append(s.last, t)
}

func TestEngine_TelemetryWindow(t *testing.T) {
	h := newHarness(t, nil)
	h.initFaces(t)
	e := h.engine

	sink := &telemetrySink{}
	e.SetStateUpdater(sink)

	now := time.Unix(1000, 0)
	e.now = func() time.Time { return now }

	// 32 frames spaced 1/30 s apart close exactly one 1 s window
	for i := 0; i <= 31; i++ {
		if err := h.render(t); err != nil {
			t.Fatal(err)
		}
		now = now.Add(time.Second / 30)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.last) != 1 {
		t.Fatalf("state updates = %d, want 1", len(sink.last))
	}
	got := sink.last[0]
	if got.FPS < 29 || got.FPS > 32 {
		t.Errorf("fps = %v, want ~30", got.FPS)
	}
	if got.Faces != 1 {
		t.Errorf("faces = %d, want 1", got.Faces)
	}
}

func TestFPSCounter(t *testing.T) {
	c := fpsCounter{window: time.Second}
	start := time.Unix(0, 0)

	for i := 0; i < 10; i++ {
		if c.tick(start.Add(time.Duration(i) * 100 * time.Millisecond)) {
			t.Fatalf("window rolled early at frame %d", i)
		}
	}
	if !c.tick(start.Add(time.Second)) {
		t.Fatal("window did not roll at 1s")
	}
	if c.current != 11 {
		t.Errorf("fps = %v, want 11", c.current)
	}

	c.reset()
	if c.current != 0 || c.frames != 0 {
		t.Error("reset left state behind")
	}
}

func TestEngine_Effects(t *testing.T) {
	h := newHarness(t, nil)
	effects := h.engine.Effects()
	if len(effects) != len(lens.FaceIDs)+len(lens.BackgroundIDs) {
		t.Errorf("Effects() = %d entries", len(effects))
	}
}

func TestEngine_Tuning(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SetTuning(tracking.TuningParams{SmoothingAlpha: 0.7})
	if got := h.engine.Tuning().SmoothingAlpha; got != 0.7 {
		t.Errorf("SmoothingAlpha = %v, want 0.7", got)
	}
}
