package record

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/surface"
)

// Encoder turns a stream of frames into a video container.
type Encoder interface {
	WriteFrame(img *image.RGBA) error
	Finish() ([]byte, error)
	MIMEType() string
}

// EncoderFactory opens an encoder for frames of the given size.
type EncoderFactory func(width, height int, fps float64) (Encoder, error)

// Config holds recording parameters
type Config struct {
	FPS float64 // Frames drawn per second while recording
}

// DefaultConfig returns the standard recording configuration
func DefaultConfig() Config {
	return Config{FPS: 30}
}

// Recording is a finished video
type Recording struct {
	ID       string        `json:"id"`
	Data     []byte        `json:"-"`
	MIMEType string        `json:"mime_type"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Frames   int           `json:"frames"`
	Duration time.Duration `json:"duration"`
	Mirrored bool          `json:"mirrored"`
}

// Recorder runs at most one recording at a time. Each recording has its own
// draw loop that reads the source independently of the render loop.
type Recorder struct {
	source     Source
	newEncoder EncoderFactory
	config     Config

	mu     sync.Mutex
	active *session
}

type session struct {
	id       string
	enc      Encoder
	mirrored bool
	width    int
	height   int
	started  time.Time

	cancel context.CancelFunc
	done   chan struct{}

	frames int
	err    error
}

// NewRecorder creates a recorder
func NewRecorder(source Source, newEncoder EncoderFactory, config Config) *Recorder {
	if config.FPS <= 0 {
		config.FPS = DefaultConfig().FPS
	}
	return &Recorder{
		source:     source,
		newEncoder: newEncoder,
		config:     config,
	}
}

// Start begins recording at the current video resolution and returns the
// recording id. The draw loop outlives ctx; only Stop ends it.
func (r *Recorder) Start(ctx context.Context, facing Facing) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return "", ErrAlreadyRecording
	}

	snap, ok := r.source.Latest()
	if !ok || snap.Video == nil || snap.Video.Bounds().Empty() {
		return "", ErrNoFrame
	}
	w, h := snap.Video.Bounds().Dx(), snap.Video.Bounds().Dy()

	enc, err := r.newEncoder(w, h, r.config.FPS)
	if err != nil {
		return "", fmt.Errorf("open encoder: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		id:       uuid.NewString(),
		enc:      enc,
		mirrored: facing.Mirrored(),
		width:    w,
		height:   h,
		started:  time.Now(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	r.active = s

	go r.loop(loopCtx, s)

	log.Info("recording started", "id", s.id, "width", w, "height", h, "mirrored", s.mirrored)
	return s.id, nil
}

func (r *Recorder) loop(ctx context.Context, s *session) {
	defer close(s.done)

	interval := time.Duration(float64(time.Second) / r.config.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.drawFrame(s); err != nil {
			s.err = err
			log.Warn("recording stopped drawing", "id", s.id, "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drawFrame composes the latest snapshot and hands it to the encoder
func (r *Recorder) drawFrame(s *session) error {
	snap, ok := r.source.Latest()
	if !ok {
		debug.FrameLog("recording skipped frame: no snapshot")
		return nil
	}

	img, err := Compose(snap, s.mirrored)
	if err != nil {
		debug.FrameLog("recording skipped frame", "error", err)
		return nil
	}
	if img.Rect.Dx() != s.width || img.Rect.Dy() != s.height {
		img = surface.Scale(img, s.width, s.height)
	}

	if err := s.enc.WriteFrame(img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.frames++
	return nil
}

// Stop ends the active recording, finalizes the encoder, and returns the
// finished video.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	s := r.active
	r.active = nil
	r.mu.Unlock()

	if s == nil {
		return nil, ErrNotRecording
	}

	s.cancel()
	<-s.done

	data, err := s.enc.Finish()
	if s.err != nil {
		return nil, s.err
	}
	if err != nil {
		return nil, fmt.Errorf("finish recording: %w", err)
	}

	rec := &Recording{
		ID:       s.id,
		Data:     data,
		MIMEType: s.enc.MIMEType(),
		Width:    s.width,
		Height:   s.height,
		Frames:   s.frames,
		Duration: time.Since(s.started),
		Mirrored: s.mirrored,
	}
	log.Info("recording finished", "id", rec.ID, "frames", rec.Frames, "bytes", len(data))
	return rec, nil
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Close stops any active recording and discards it.
func (r *Recorder) Close() error {
	if !r.Recording() {
		return nil
	}
	_, err := r.Stop()
	return err
}
