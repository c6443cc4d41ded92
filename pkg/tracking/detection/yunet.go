package detection

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"gocv.io/x/gocv"
)

const (
	yunetNMS  = 0.3
	yunetTopK = 5000

	// Output row layout: box (4), five keypoints (10), score (1)
	yunetCols     = 15
	yunetRightEye = 4
	yunetLeftEye  = 6
	yunetScore    = 14
)

// YuNetDetector finds face regions for the mesh crop with OpenCV's
// FaceDetectorYN.
type YuNetDetector struct {
	mu        sync.Mutex
	net       gocv.FaceDetectorYN
	minScore  float64
	inputSize image.Point
}

// NewYuNet loads the YuNet model named by cfg.ModelPath.
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("face region model: %w", err)
	}

	size := image.Pt(cfg.InputWidth, cfg.InputHeight)
	net := gocv.NewFaceDetectorYNWithParams(cfg.ModelPath, "", size,
		float32(cfg.ConfidenceThresh), yunetNMS, yunetTopK,
		int(gocv.NetBackendDefault), int(gocv.NetTargetCPU))

	return &YuNetDetector{net: net, minScore: cfg.ConfidenceThresh, inputSize: size}, nil
}

// Detect returns the face regions in img, normalized to its size.
func (d *YuNetDetector) Detect(img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := image.Pt(img.Cols(), img.Rows())
	if size != d.inputSize {
		d.net.SetInputSize(size)
		d.inputSize = size
	}

	out := gocv.NewMat()
	defer out.Close()
	d.net.Detect(img, &out)

	if out.Rows() > 0 && out.Cols() < yunetCols {
		return nil, fmt.Errorf("face region output has %d columns, want %d", out.Cols(), yunetCols)
	}

	w, h := float64(size.X), float64(size.Y)
	dets := make([]Detection, 0, out.Rows())
	for r := 0; r < out.Rows(); r++ {
		det := parseYuNetRow(out, r, w, h)
		if det.Confidence < d.minScore || det.W <= 0 || det.H <= 0 {
			continue
		}
		dets = append(dets, det)
	}

	debug.FrameLog("face regions", "count", len(dets))
	return dets, nil
}

// parseYuNetRow reads one output row. YuNet reports keypoints from the
// subject's point of view, so its "right eye" is on the image left.
func parseYuNetRow(out gocv.Mat, r int, w, h float64) Detection {
	at := func(c int) float64 { return float64(out.GetFloatAt(r, c)) }

	x0, y0 := math.Max(at(0), 0), math.Max(at(1), 0)
	x1, y1 := math.Min(at(0)+at(2), w), math.Min(at(1)+at(3), h)

	return Detection{
		X:          x0 / w,
		Y:          y0 / h,
		W:          (x1 - x0) / w,
		H:          (y1 - y0) / h,
		Confidence: at(yunetScore),
		LeftEye:    landmark.Pt(at(yunetRightEye)/w, at(yunetRightEye+1)/h),
		RightEye:   landmark.Pt(at(yunetLeftEye)/w, at(yunetLeftEye+1)/h),
	}
}

// Close releases the model
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}
