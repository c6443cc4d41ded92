// Package camera provides runtime-configurable camera capture for the engine.
// This follows the same pattern as pkg/tracking for tunable parameters.
package camera

import (
	"fmt"
	"strconv"
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// Device is a capture device index ("0") or a stream/file URL.
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// Facing is "user" for a front camera or "environment" for a rear one.
	// Captures and recordings of a user-facing camera are mirrored.
	Facing string `json:"facing"`

	// Brightness is passed to the driver when non-zero (0.0 to 1.0).
	Brightness float64 `json:"brightness"`

	// AutoFocus enables continuous autofocus where the driver supports it.
	AutoFocus bool `json:"auto_focus"`

	// WarmupFrames is how many leading blank frames are discarded after open.
	WarmupFrames int `json:"warmup_frames"`
}

// Limits accepted by Validate
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the standard front-camera configuration.
func DefaultConfig() Config {
	return Config{
		Device:       "0",
		Width:        640,
		Height:       480,
		Framerate:    30,
		Facing:       "user",
		Brightness:   0, // Driver default
		AutoFocus:    true,
		WarmupFrames: 15,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must not be empty")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}

	if c.Facing != "user" && c.Facing != "environment" {
		errors = append(errors, "facing must be user or environment")
	}

	if c.Brightness < 0 || c.Brightness > 1 {
		errors = append(errors, "brightness must be between 0.0 and 1.0")
	}

	if c.WarmupFrames < 0 || c.WarmupFrames > 300 {
		errors = append(errors, "warmup_frames must be between 0 and 300")
	}

	return errors
}

// DeviceIndex returns the device as a numeric index when it is one.
func (c *Config) DeviceIndex() (int, bool) {
	idx, err := strconv.Atoi(c.Device)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
