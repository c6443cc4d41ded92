package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/video"
	"gocv.io/x/gocv"
)

// ErrClosed is returned by a source that has been closed.
var ErrClosed = errors.New("camera closed")

// Source reads frames from an OpenCV capture device on its own goroutine and
// keeps only the most recent one.
type Source struct {
	capMu  sync.Mutex
	cap    *gocv.VideoCapture
	config Config
	closed bool

	mu     sync.RWMutex
	latest image.Image
	frames uint64
}

// Open opens the configured device and applies the requested format.
func Open(cfg Config) (*Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}

	vc, err := openCapture(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("camera opened", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return &Source{cap: vc, config: cfg}, nil
}

func openCapture(cfg Config) (*gocv.VideoCapture, error) {
	var device interface{} = cfg.Device
	if idx, ok := cfg.DeviceIndex(); ok {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %s not opened", cfg.Device)
	}

	applyFormat(vc, cfg)
	return vc, nil
}

func applyFormat(vc *gocv.VideoCapture, cfg Config) {
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness > 0 {
		vc.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}
	if cfg.AutoFocus {
		vc.Set(gocv.VideoCaptureAutoFocus, 1)
	} else {
		vc.Set(gocv.VideoCaptureAutoFocus, 0)
	}
}

// Run reads frames until ctx is cancelled or the source is closed.
func (s *Source) Run(ctx context.Context) error {
	mat := gocv.NewMat()
	defer mat.Close()

	warmup := s.Config().WarmupFrames
	misses := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.capMu.Lock()
		if s.closed {
			s.capMu.Unlock()
			return ErrClosed
		}
		ok := s.cap.Read(&mat)
		s.capMu.Unlock()

		if !ok || mat.Empty() {
			misses++
			if misses == 30 {
				log.Warn("camera is not producing frames", "device", s.Config().Device)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		misses = 0

		img, err := mat.ToImage()
		if err != nil {
			debug.FrameLog("camera frame conversion failed", "error", err)
			continue
		}

		if warmup > 0 {
			warmup--
			if video.IsBlankFrame(img) {
				debug.FrameLog("skipping warm-up frame")
				continue
			}
			warmup = 0
		}

		s.publish(img)
	}
}

func (s *Source) publish(img image.Image) {
	s.mu.Lock()
	s.latest = img
	s.frames++
	s.mu.Unlock()
}

// Frame returns the most recent frame. Frames are never modified after they
// are published.
func (s *Source) Frame() (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Frames returns how many frames have been published.
func (s *Source) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Config returns the active configuration.
func (s *Source) Config() Config {
	s.capMu.Lock()
	defer s.capMu.Unlock()
	return s.config
}

// Apply switches to cfg, reopening the device when it changed. Suitable as a
// Manager.OnConfigChange callback.
func (s *Source) Apply(cfg Config) error {
	s.capMu.Lock()
	defer s.capMu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if cfg.Device != s.config.Device {
		vc, err := openCapture(cfg)
		if err != nil {
			return err
		}
		s.cap.Close()
		s.cap = vc
	} else {
		applyFormat(s.cap, cfg)
	}

	s.config = cfg
	log.Info("camera reconfigured", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height, "facing", cfg.Facing)
	return nil
}

// Close releases the device.
func (s *Source) Close() error {
	s.capMu.Lock()
	defer s.capMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.cap.Close()
}
