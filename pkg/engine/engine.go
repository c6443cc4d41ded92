// Package engine runs the render loop: it pulls camera frames, feeds the
// perception models, and draws the active lens onto the output surface.
//
// The loop renders at most one frame at a time. Model calls happen inside
// the frame, so a slow model delays that frame rather than queueing more.
// Captures, recordings and the preview stream read published snapshots and
// never touch the live surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/composite"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/record"
	"github.com/teslashibe/go-lens/pkg/surface"
	"github.com/teslashibe/go-lens/pkg/tracking"
	"github.com/teslashibe/go-lens/pkg/video"
)

var (
	ErrNotRunning    = errors.New("engine not running")
	ErrUnknownEffect = lens.ErrUnknownEffect
)

// FrameSource provides the most recent camera frame
type FrameSource interface {
	Frame() (image.Image, bool)
}

// Models are the lazily-built perception models and the video encoder
type Models struct {
	Landmarks tracking.DetectorLoader
	Segmenter tracking.SegmenterLoader
	Encoder   record.EncoderFactory
}

// Engine is the AR render loop controller
type Engine struct {
	config Config
	source FrameSource
	state  StateUpdater
	now    func() time.Time

	perception   *tracking.Perception
	segmentation *composite.Segmentation
	compositor   *composite.Compositor
	library      *lens.Library
	surface      *surface.Surface
	recorder     *record.Recorder

	// Lifecycle
	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// frameMu is held for the whole of a frame and by anything that changes
	// what a frame draws.
	frameMu sync.Mutex
	effect  lens.ID
	fps     fpsCounter

	// Published state
	mu        sync.RWMutex
	snap      record.Snapshot
	hasSnap   bool
	telemetry Telemetry
}

// New creates a stopped engine with no active effect.
func New(config Config, source FrameSource, models Models) *Engine {
	if models.Encoder == nil {
		models.Encoder = func(w, h int, fps float64) (record.Encoder, error) {
			return video.NewWriter(w, h, fps, video.DefaultCodecs)
		}
	}

	e := &Engine{
		config:       config,
		source:       source,
		now:          time.Now,
		perception:   tracking.NewPerception(config.Tracking, models.Landmarks),
		segmentation: composite.NewSegmentation(models.Segmenter),
		compositor:   composite.New(config.Composite),
		library:      lens.NewLibrary(config.Lens),
		surface:      surface.New(1, 1),
		effect:       lens.None,
		fps:          fpsCounter{window: config.FPSWindow},
	}
	e.recorder = record.NewRecorder(e, models.Encoder, config.Record)
	e.telemetry = Telemetry{Effect: lens.None, Segmentation: composite.StateIdle.String()}
	return e
}

// SetStateUpdater sets the telemetry receiver
func (e *Engine) SetStateUpdater(state StateUpdater) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.state = state
}

// Start initializes the landmark model if needed and starts the render loop.
// It is a no-op when the engine is already running. A landmark model that
// fails to load is logged and retried on the next Start; the loop runs
// without face tracking meanwhile.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.running {
		return nil
	}

	if err := e.perception.Init(ctx); err != nil {
		log.Warn("face tracking unavailable", "error", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	e.mu.Lock()
	e.telemetry.Running = true
	e.mu.Unlock()

	go e.loop(loopCtx, e.done)

	log.Info("engine started", "effect", e.Effect(), "interval", e.config.FrameInterval)
	return nil
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.config.FrameInterval)
	defer ticker.Stop()

	for {
		if err := e.renderFrame(ctx); err != nil {
			debug.FrameLog("frame skipped", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the render loop and clears tracked faces, the segmentation
// mask, lens state and the output surface. No frame is rendered after Stop
// returns. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if !e.running {
		return
	}

	e.cancel()
	<-e.done
	e.running = false

	e.frameMu.Lock()
	e.perception.Reset()
	e.segmentation.ClearMask()
	e.library.Reset()
	e.compositor.Reset()
	e.surface.Clear()
	e.fps.reset()
	e.frameMu.Unlock()

	e.mu.Lock()
	e.snap, e.hasSnap = record.Snapshot{}, false
	e.telemetry.Running = false
	e.telemetry.FPS = 0
	e.telemetry.Faces = 0
	e.mu.Unlock()

	log.Info("engine stopped")
}

// Running reports whether the render loop is active.
func (e *Engine) Running() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.running
}

// SetEffect switches the active effect and resets the lens clock,
// particles and segmentation mask. id must be a registered effect or "none".
func (e *Engine) SetEffect(id string) error {
	effect, err := lens.Parse(id)
	if err != nil {
		return err
	}
	if !e.library.Has(effect) {
		return fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}

	e.frameMu.Lock()
	prev := e.effect
	e.effect = effect
	e.library.Reset()
	e.segmentation.ClearMask()
	e.frameMu.Unlock()

	if effect.IsBackground() {
		e.segmentation.Ensure(context.Background())
	}

	e.mu.Lock()
	e.telemetry.Effect = effect
	e.mu.Unlock()

	log.Info("effect changed", "from", prev, "to", effect)
	return nil
}

// Effect returns the active effect.
func (e *Engine) Effect() lens.ID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.telemetry.Effect
}

// Effects lists every selectable effect.
func (e *Engine) Effects() []lens.Info {
	return e.library.Effects()
}

// renderFrame draws one frame. A perception error skips the frame and is
// returned; the surface and published snapshot keep the previous frame.
func (e *Engine) renderFrame(ctx context.Context) error {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	frame, ok := e.source.Frame()
	if !ok || frame == nil {
		return nil
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil
	}

	// 1. Follow the camera resolution
	if err := e.surface.Resize(b.Dx(), b.Dy()); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	w, h := e.surface.Size()
	effect := e.effect

	// 2. Perception
	var faces []tracking.Face
	if effect.IsBackground() {
		if e.segmentation.Ensure(ctx) == composite.StateReady {
			if err := e.segmentation.Segment(ctx, frame); err != nil {
				return err
			}
		}
		// landmarks are not run under a scene, so no faces are reported
	} else if e.perception.Ready() {
		var err error
		faces, err = e.perception.Process(ctx, frame, w, h)
		if err != nil {
			return err
		}
	}

	// 3. Clear
	e.surface.Clear()
	dc := e.surface.Context()

	// 4. Draw
	switch {
	case effect.IsBackground():
		e.library.BeginFrame(nil)
		paint := func(dc *gg.Context) {
			if err := e.library.PaintBackground(dc, effect, w, h); err != nil {
				debug.FrameLog("background paint failed", "error", err)
			}
		}
		e.compositor.Compose(e.surface, frame, e.segmentation.Mask(), paint)
	case effect == lens.None:
		e.library.BeginFrame(nil)
	default:
		e.library.BeginFrame(dc)
		for _, face := range faces {
			if err := e.library.RenderFace(dc, effect, face, w, h); err != nil {
				debug.FrameLog("lens render failed", "error", err)
			}
		}
	}

	// 5. Telemetry and snapshot
	rolled := e.fps.tick(e.now())
	out := e.surface.Snapshot()

	e.mu.Lock()
	e.snap = record.Snapshot{Video: frame, Output: out, Effect: effect}
	e.hasSnap = true
	e.telemetry.Faces = len(faces)
	e.telemetry.Frames++
	if rolled {
		e.telemetry.FPS = e.fps.current
	}
	e.mu.Unlock()

	if rolled && e.state != nil {
		e.state.UpdateTelemetry(e.Telemetry())
	}
	return nil
}

// Latest returns the most recently rendered frame.
func (e *Engine) Latest() (record.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap, e.hasSnap
}

// Faces returns the currently tracked faces.
func (e *Engine) Faces() []tracking.Face {
	return e.perception.Faces()
}

// Telemetry returns the published engine state.
func (e *Engine) Telemetry() Telemetry {
	e.mu.RLock()
	t := e.telemetry
	e.mu.RUnlock()

	t.Segmentation = e.segmentation.State().String()
	t.Recording = e.recorder.Recording()
	return t
}

// Tuning returns the live tracking parameters.
func (e *Engine) Tuning() tracking.TuningParams {
	return e.perception.GetTuningParams()
}

// SetTuning updates tracking parameters; zero fields are left unchanged.
func (e *Engine) SetTuning(params tracking.TuningParams) {
	e.perception.SetTuningParams(params)
}

// CaptureFrame encodes the latest frame as a JPEG still.
func (e *Engine) CaptureFrame(facing record.Facing) (*record.Still, error) {
	return record.Capture(e, facing, e.config.CaptureQuality)
}

// Preview encodes the latest frame for the live preview stream.
func (e *Engine) Preview(facing record.Facing) ([]byte, error) {
	snap, ok := e.Latest()
	if !ok {
		return nil, record.ErrNoFrame
	}
	img, err := record.Compose(snap, facing.Mirrored())
	if err != nil {
		return nil, err
	}
	return video.RGBToJPEG(img, e.config.PreviewQuality)
}

// StartRecording starts a recording of the engine output.
func (e *Engine) StartRecording(ctx context.Context, facing record.Facing) (string, error) {
	return e.recorder.Start(ctx, facing)
}

// StopRecording finishes the active recording.
func (e *Engine) StopRecording() (*record.Recording, error) {
	return e.recorder.Stop()
}

// Close stops the engine and releases every model.
func (e *Engine) Close() error {
	e.Stop()

	var errs []error
	if err := e.recorder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.perception.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.segmentation.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
