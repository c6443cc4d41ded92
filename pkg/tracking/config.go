package tracking

import "github.com/teslashibe/go-lens/pkg/landmark"

// Config holds all tunable parameters for landmark smoothing and feature extraction
type Config struct {
	// Smoothing
	SmoothingAlpha float64 // EMA weight of the new reading (0-1, higher = more responsive)

	// Face scale
	EyeCalibration float64 // Outer eye-corner distance (px) that maps to FaceScale 1.0
	MinFaceScale   float64 // FaceScale floor, keeps lens geometry from collapsing

	// Expressions
	MouthOpenRatio float64 // Lip gap / mouth width above this is "open" (strict >)
	BlinkRatio     float64 // Eye aspect ratio below this is "closed"

	// Perception
	MinLandmarks int // Sets shorter than this are discarded
	MaxFaces     int // Upper bound on tracked face slots
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		SmoothingAlpha: 0.45, // 45% new, 55% old

		EyeCalibration: 140,
		MinFaceScale:   0.25,

		MouthOpenRatio: 0.25,
		BlinkRatio:     0.18,

		MinLandmarks: landmark.MeshSize,
		MaxFaces:     2,
	}
}

// SmoothConfig returns a configuration for heavier jitter suppression.
// Lenses lag slightly behind fast head motion.
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.3
	return cfg
}

// ResponsiveConfig returns a configuration that trusts new readings more
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.7
	return cfg
}
