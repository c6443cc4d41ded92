package engine

import (
	"time"

	"github.com/teslashibe/go-lens/pkg/composite"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/record"
	"github.com/teslashibe/go-lens/pkg/tracking"
	"github.com/teslashibe/go-lens/pkg/video"
)

// Config holds all tunable engine parameters
type Config struct {
	// Timing
	FrameInterval time.Duration // Render loop period (one display refresh)
	FPSWindow     time.Duration // Frame-rate averaging window

	// Encoding
	CaptureQuality int // JPEG quality for stills
	PreviewQuality int // JPEG quality for the live preview stream

	// Components
	Tracking  tracking.Config
	Lens      lens.Config
	Composite composite.Config
	Record    record.Config
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		FrameInterval: 16 * time.Millisecond, // ~60 Hz
		FPSWindow:     time.Second,

		CaptureQuality: video.DefaultJPEGQuality,
		PreviewQuality: 70,

		Tracking:  tracking.DefaultConfig(),
		Lens:      lens.DefaultConfig(),
		Composite: composite.DefaultConfig(),
		Record:    record.DefaultConfig(),
	}
}
