package tracking

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/teslashibe/go-lens/pkg/landmark"
)

type stubDetector struct {
	mu     sync.Mutex
	sets   []landmark.Set
	err    error
	calls  int
	closed bool
}

func (d *stubDetector) Detect(ctx context.Context, frame image.Image) ([]landmark.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.sets, d.err
}

func (d *stubDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func loaderFor(d LandmarkDetector) DetectorLoader {
	return func(ctx context.Context) (LandmarkDetector, error) { return d, nil }
}

func TestPerception_InitIsLazyAndIdempotent(t *testing.T) {
	loads := 0
	det := &stubDetector{}
	p := NewPerception(DefaultConfig(), func(ctx context.Context) (LandmarkDetector, error) {
		loads++
		return det, nil
	})

	if p.Ready() {
		t.Fatal("detector should not be built before Init")
	}
	for i := 0; i < 3; i++ {
		if err := p.Init(context.Background()); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
	if !p.Ready() {
		t.Error("expected Ready after Init")
	}
}

func TestPerception_InitFailure(t *testing.T) {
	p := NewPerception(DefaultConfig(), func(ctx context.Context) (LandmarkDetector, error) {
		return nil, ErrModelUnavailable
	})
	err := p.Init(context.Background())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("Init error = %v, want ErrModelUnavailable", err)
	}

	if err := NewPerception(DefaultConfig(), nil).Init(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("nil loader error = %v", err)
	}
}

func TestPerception_ProcessBeforeInit(t *testing.T) {
	p := NewPerception(DefaultConfig(), loaderFor(&stubDetector{}))
	if _, err := p.Process(context.Background(), nil, testWidth, testHeight); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("error = %v, want ErrModelUnavailable", err)
	}
}

func TestPerception_DetectorErrorKeepsFaces(t *testing.T) {
	det := &stubDetector{sets: []landmark.Set{normalizedFace(landmark.MeshSize)}}
	p := NewPerception(DefaultConfig(), loaderFor(det))
	if err := p.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	faces, err := p.Process(context.Background(), nil, testWidth, testHeight)
	if err != nil || len(faces) != 1 {
		t.Fatalf("first frame: faces=%d err=%v", len(faces), err)
	}

	det.err = errors.New("inference failed")
	faces, err = p.Process(context.Background(), nil, testWidth, testHeight)
	if err == nil {
		t.Fatal("expected detector error")
	}
	if len(faces) != 1 {
		t.Errorf("previous faces should survive a failed frame, got %d", len(faces))
	}
	if p.GetConsecutiveMisses() != 1 {
		t.Errorf("misses = %d, want 1", p.GetConsecutiveMisses())
	}
}

func TestPerception_MissesResetOnDetection(t *testing.T) {
	det := &stubDetector{}
	p := NewPerception(DefaultConfig(), loaderFor(det))
	_ = p.Init(context.Background())

	for i := 0; i < 6; i++ {
		_, _ = p.Process(context.Background(), nil, testWidth, testHeight)
	}
	if p.GetConsecutiveMisses() != 6 {
		t.Errorf("misses = %d, want 6", p.GetConsecutiveMisses())
	}

	det.sets = []landmark.Set{normalizedFace(landmark.MeshSize)}
	_, _ = p.Process(context.Background(), nil, testWidth, testHeight)
	if p.GetConsecutiveMisses() != 0 {
		t.Errorf("misses = %d after detection, want 0", p.GetConsecutiveMisses())
	}
}

func TestPerception_ResetAndClose(t *testing.T) {
	det := &stubDetector{sets: []landmark.Set{normalizedFace(landmark.MeshSize)}}
	p := NewPerception(DefaultConfig(), loaderFor(det))
	_ = p.Init(context.Background())
	_, _ = p.Process(context.Background(), nil, testWidth, testHeight)

	p.Reset()
	if len(p.Faces()) != 0 {
		t.Error("Reset should clear faces")
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !det.closed {
		t.Error("detector not closed")
	}
	if p.Ready() {
		t.Error("Ready should be false after Close")
	}
}

func TestPerception_TuningParams(t *testing.T) {
	p := NewPerception(DefaultConfig(), nil)

	p.SetTuningParams(TuningParams{SmoothingAlpha: 0.8})
	got := p.GetTuningParams()
	if got.SmoothingAlpha != 0.8 {
		t.Errorf("alpha = %v, want 0.8", got.SmoothingAlpha)
	}
	if got.MouthOpenRatio != 0.25 {
		t.Errorf("zero field should be left alone, got mouth ratio %v", got.MouthOpenRatio)
	}

	p.SetTuningParams(TuningParams{SmoothingAlpha: 5})
	if a := p.Smoothing(); a != 1 {
		t.Errorf("alpha = %v, want clamped to 1", a)
	}
}
