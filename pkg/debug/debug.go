// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-lens/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether verbose per-frame logs are shown (skipped frames,
// perception misses, segmentation results). Use --debug-frames to enable.
var Frames bool

// Log emits a message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// FrameLog emits a message only if per-frame debug mode is enabled
func FrameLog(msg string, args ...any) {
	if Frames {
		log.Debug(msg, args...)
	}
}
