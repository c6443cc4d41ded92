package engine

import (
	"time"

	"github.com/teslashibe/go-lens/pkg/lens"
)

// Telemetry is the engine state published for display
type Telemetry struct {
	FPS          float64 `json:"fps"`
	Faces        int     `json:"faces"`
	Running      bool    `json:"running"`
	Effect       lens.ID `json:"effect"`
	Segmentation string  `json:"segmentation"`
	Recording    bool    `json:"recording"`
	Frames       uint64  `json:"frames"`
}

// StateUpdater receives telemetry once per FPS window
type StateUpdater interface {
	UpdateTelemetry(t Telemetry)
}

// fpsCounter averages rendered frames over a fixed window
type fpsCounter struct {
	window  time.Duration
	start   time.Time
	frames  int
	current float64
}

// tick counts one frame and reports whether the window rolled over
func (c *fpsCounter) tick(now time.Time) bool {
	if c.start.IsZero() {
		c.start = now
	}
	c.frames++

	elapsed := now.Sub(c.start)
	if elapsed < c.window {
		return false
	}
	c.current = float64(c.frames) / elapsed.Seconds()
	c.frames = 0
	c.start = now
	return true
}

func (c *fpsCounter) reset() {
	c.start = time.Time{}
	c.frames = 0
	c.current = 0
}
