package composite

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

// State is the lifecycle of the segmentation model
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Segmentation loads the person segmenter on first use and holds the most
// recent mask. A failed load is latched: the model is never requested again
// and callers stay on the no-mask path for the lifetime of the value.
type Segmentation struct {
	loader tracking.SegmenterLoader

	mu     sync.Mutex
	state  State
	model  tracking.Segmenter
	mask   *gg.Mask
	err    error
	closed bool
	done   chan struct{}
}

// NewSegmentation creates an idle segmentation holder
func NewSegmentation(loader tracking.SegmenterLoader) *Segmentation {
	return &Segmentation{
		loader: loader,
		done:   make(chan struct{}),
	}
}

// Ensure starts loading the model in the background if nothing has been
// attempted yet, and returns the current state. It never blocks on the load.
func (s *Segmentation) Ensure(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle || s.closed {
		return s.state
	}
	if s.loader == nil {
		s.fail(tracking.ErrModelUnavailable)
		return s.state
	}

	s.state = StateLoading
	go s.load(context.WithoutCancel(ctx))
	return s.state
}

func (s *Segmentation) load(ctx context.Context) {
	model, err := s.loader(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.fail(err)
		return
	}
	if s.closed {
		_ = model.Close()
		s.fail(fmt.Errorf("segmenter closed during load: %w", tracking.ErrModelUnavailable))
		return
	}

	s.model = model
	s.state = StateReady
	close(s.done)
	log.Info("segmentation model ready")
}

// fail latches the failed state. Callers hold mu.
func (s *Segmentation) fail(err error) {
	s.state = StateFailed
	s.err = fmt.Errorf("segmentation: %w", err)
	close(s.done)
	log.Warn("segmentation unavailable, background effects use fallback compositing", "error", err)
}

// Loaded is closed once a load attempt has finished, successfully or not.
func (s *Segmentation) Loaded() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Segmentation) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the latched load error, if any.
func (s *Segmentation) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Segment runs the model on frame and keeps the resulting mask. A model
// error leaves the previous mask in place.
func (s *Segmentation) Segment(ctx context.Context, frame image.Image) error {
	s.mu.Lock()
	model := s.model
	s.mu.Unlock()

	if model == nil {
		return tracking.ErrModelUnavailable
	}

	mask, err := model.Segment(ctx, frame)
	if err != nil {
		debug.FrameLog("segmentation failed", "error", err)
		return fmt.Errorf("segment frame: %w", err)
	}

	s.mu.Lock()
	s.mask = mask
	s.mu.Unlock()
	return nil
}

// Mask returns the latest mask, or nil when none has been produced.
func (s *Segmentation) Mask() *gg.Mask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask
}

// ClearMask drops the latest mask.
func (s *Segmentation) ClearMask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask = nil
}

// Close releases the model. A load still in flight is discarded when it
// completes.
func (s *Segmentation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.mask = nil
	if s.model == nil {
		return nil
	}
	err := s.model.Close()
	s.model = nil
	return err
}
