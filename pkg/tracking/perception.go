package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/landmark"
)

// ErrModelUnavailable is returned when a perception model cannot be loaded.
var ErrModelUnavailable = errors.New("perception model unavailable")

// LandmarkDetector is the face-landmark model boundary
type LandmarkDetector interface {
	// Detect returns zero or more normalized landmark sets for the frame
	Detect(ctx context.Context, frame image.Image) ([]landmark.Set, error)

	// Close releases resources
	Close() error
}

// Segmenter is the person-segmentation model boundary
type Segmenter interface {
	// Segment returns a foreground probability mask (0 = background,
	// 255 = person). The mask may be smaller than the frame.
	Segment(ctx context.Context, frame image.Image) (*gg.Mask, error)

	// Close releases resources
	Close() error
}

// DetectorLoader lazily constructs a landmark detector.
type DetectorLoader func(ctx context.Context) (LandmarkDetector, error)

// SegmenterLoader lazily constructs a segmenter.
type SegmenterLoader func(ctx context.Context) (Segmenter, error)

// Perception turns video frames into smoothed, feature-annotated faces
type Perception struct {
	loader   DetectorLoader
	detector LandmarkDetector
	smoother *Smoother

	mu                sync.Mutex
	consecutiveMisses int
}

// NewPerception creates a perception stage. The detector is not built until Init.
func NewPerception(config Config, loader DetectorLoader) *Perception {
	return &Perception{
		loader:   loader,
		smoother: NewSmoother(config),
	}
}

// Init builds the landmark detector if it has not been built yet.
func (p *Perception) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detector != nil {
		return nil
	}
	if p.loader == nil {
		return fmt.Errorf("landmark detector: %w", ErrModelUnavailable)
	}

	det, err := p.loader(ctx)
	if err != nil {
		return fmt.Errorf("landmark detector: %w", err)
	}
	p.detector = det
	return nil
}

// Ready reports whether the detector has been built.
func (p *Perception) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detector != nil
}

// Process runs the detector on one frame and folds the result into the
// smoother. width and height are the output surface size in pixels.
//
// A detector error leaves the previous faces untouched and is returned so the
// caller can skip the frame.
func (p *Perception) Process(ctx context.Context, frame image.Image, width, height int) ([]Face, error) {
	p.mu.Lock()
	det := p.detector
	p.mu.Unlock()

	if det == nil {
		return nil, ErrModelUnavailable
	}

	sets, err := det.Detect(ctx, frame)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.consecutiveMisses++
		return p.smoother.Faces(), fmt.Errorf("detect landmarks: %w", err)
	}

	faces := p.smoother.Update(sets, width, height)
	if len(faces) == 0 {
		p.consecutiveMisses++
		if p.consecutiveMisses == 5 {
			debug.FrameLog("lost face (5 consecutive misses)")
		}
	} else {
		p.consecutiveMisses = 0
	}

	return faces, nil
}

// Faces returns the faces from the most recent successful frame.
func (p *Perception) Faces() []Face {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.smoother.Faces()
}

// Reset clears every tracked face.
func (p *Perception) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.smoother.Reset()
}

// SetSmoothing changes the smoothing factor at runtime.
func (p *Perception) SetSmoothing(alpha float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.smoother.SetAlpha(alpha)
}

// Smoothing returns the active smoothing factor.
func (p *Perception) Smoothing() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.smoother.Config().SmoothingAlpha
}

// GetConsecutiveMisses returns how many frames in a row produced no face
func (p *Perception) GetConsecutiveMisses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveMisses
}

// Close releases the detector.
func (p *Perception) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detector == nil {
		return nil
	}
	err := p.detector.Close()
	p.detector = nil
	return err
}
