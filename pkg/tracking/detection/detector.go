// Package detection provides gocv-backed face landmark and person segmentation models
package detection

import (
	"image"
	"math"
	"sort"

	"github.com/teslashibe/go-lens/pkg/landmark"
)

// Detection represents a detected face region
type Detection struct {
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)

	// Eye keypoints in image terms (LeftEye has the smaller X on an
	// upright face), normalized. Zero when the detector gives none.
	LeftEye, RightEye landmark.Point
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Roll is the eye-line angle in radians, or 0 without eye keypoints.
func (d Detection) Roll(width, height int) float64 {
	if d.LeftEye == (landmark.Point{}) && d.RightEye == (landmark.Point{}) {
		return 0
	}
	return math.Atan2(
		(d.RightEye.Y-d.LeftEye.Y)*float64(height),
		(d.RightEye.X-d.LeftEye.X)*float64(width),
	)
}

// Square returns a square pixel crop around the detection, its side the
// larger box edge times expand, clipped to a width x height frame.
func (d Detection) Square(width, height int, expand float64) image.Rectangle {
	cx, cy := d.Center()
	cx *= float64(width)
	cy *= float64(height)

	side := d.W * float64(width)
	if h := d.H * float64(height); h > side {
		side = h
	}
	half := side * expand / 2

	r := image.Rect(int(cx-half), int(cy-half), int(cx+half), int(cy+half))
	return r.Intersect(image.Rect(0, 0, width, height))
}

// Config holds face landmark model configuration
type Config struct {
	ModelPath        string  // Path to YuNet ONNX model (face regions)
	MeshModelPath    string  // Path to face-mesh ONNX model (468 points)
	ConfidenceThresh float64 // Minimum face confidence (default 0.5)
	InputWidth       int     // YuNet initial input width
	InputHeight      int     // YuNet initial input height
	MeshInputSize    int     // Face-mesh square input size
	ROIExpand        float64 // Face box growth before the mesh crop
	MaxFaces         int     // Face regions passed to the mesh network
	ModelBaseURL     string  // Where missing model files are fetched from (optional)
}

// DefaultConfig returns production defaults for YuNet + face mesh
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		MeshModelPath:    "models/face_landmark.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
		MeshInputSize:    192,
		ROIExpand:        1.5,
		MaxFaces:         2,
	}
}

// SegmenterConfig holds person segmentation model configuration
type SegmenterConfig struct {
	ModelPath string // Path to selfie-segmentation ONNX model
	InputSize int    // Square model input size
	BaseURL   string // Where a missing model file is fetched from (optional)
}

// DefaultSegmenterConfig returns production defaults for selfie segmentation
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		ModelPath: "models/selfie_segmentation.onnx",
		InputSize: 256,
	}
}

// Rank orders detections best first and keeps at most max of them.
// Priority: confidence * 0.7 + relative area * 0.3
func Rank(dets []Detection, max int) []Detection {
	if len(dets) == 0 {
		return nil
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	score := func(d Detection) float64 {
		if maxArea == 0 {
			return d.Confidence * 0.7
		}
		return d.Confidence*0.7 + (d.Area()/maxArea)*0.3
	}

	ranked := make([]Detection, len(dets))
	copy(ranked, dets)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}
