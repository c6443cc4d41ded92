package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-lens/internal/httpc"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"github.com/teslashibe/go-lens/pkg/tracking"
	"gocv.io/x/gocv"
)

var _ tracking.LandmarkDetector = (*FaceMesh)(nil)

// FaceMesh finds face regions with YuNet, then runs a face-mesh network on a
// square crop of each region to produce a 468-point landmark set.
type FaceMesh struct {
	roi    *YuNetDetector
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects the mesh network
}

// NewFaceMesh loads both models
func NewFaceMesh(cfg Config) (*FaceMesh, error) {
	if _, err := os.Stat(cfg.MeshModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.MeshModelPath)
	}

	roi, err := NewYuNet(cfg)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(cfg.MeshModelPath)
	if net.Empty() {
		roi.Close()
		return nil, fmt.Errorf("failed to load face mesh model from %s", cfg.MeshModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &FaceMesh{
		roi:    roi,
		net:    net,
		config: cfg,
	}, nil
}

// Loader adapts NewFaceMesh to the lazy detector boundary
func Loader(cfg Config) tracking.DetectorLoader {
	return func(ctx context.Context) (tracking.LandmarkDetector, error) {
		for _, path := range []string{cfg.ModelPath, cfg.MeshModelPath} {
			if err := httpc.EnsureFile(ctx, cfg.ModelBaseURL, path); err != nil {
				return nil, fmt.Errorf("%w: %v", tracking.ErrModelUnavailable, err)
			}
		}
		m, err := NewFaceMesh(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tracking.ErrModelUnavailable, err)
		}
		return m, nil
	}
}

// Detect returns one normalized landmark set per face region, best region first
func (m *FaceMesh) Detect(ctx context.Context, frame image.Image) ([]landmark.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	dets, err := m.roi.Detect(img)
	if err != nil {
		return nil, err
	}
	dets = Rank(dets, m.config.MaxFaces)

	m.mu.Lock()
	defer m.mu.Unlock()

	sets := make([]landmark.Set, 0, len(dets))
	for _, d := range dets {
		rect := d.Square(img.Cols(), img.Rows(), m.config.ROIExpand)
		if rect.Dx() < 8 || rect.Dy() < 8 {
			continue
		}

		set, err := m.mesh(img, rect)
		if err != nil {
			return sets, err
		}
		if set != nil {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

// mesh runs the network on one crop and maps its output back to
// normalized frame coordinates
func (m *FaceMesh) mesh(img gocv.Mat, rect image.Rectangle) (landmark.Set, error) {
	n := m.config.MeshInputSize

	crop := img.Region(rect)
	blob := gocv.BlobFromImage(crop, 1.0/255.0, image.Pt(n, n),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	crop.Close()
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read mesh output: %w", err)
	}
	if len(data) < landmark.MeshSize*3 {
		return nil, nil
	}

	frameW := float64(img.Cols())
	frameH := float64(img.Rows())
	sx := float64(rect.Dx()) / float64(n)
	sy := float64(rect.Dy()) / float64(n)

	set := make(landmark.Set, landmark.MeshSize)
	for i := range set {
		x := float64(data[i*3])
		y := float64(data[i*3+1])
		z := float64(data[i*3+2])
		set[i] = landmark.Point{
			X: (float64(rect.Min.X) + x*sx) / frameW,
			Y: (float64(rect.Min.Y) + y*sy) / frameH,
			Z: z * sx / frameW,
		}
	}
	return set, nil
}

// Close releases both models
func (m *FaceMesh) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.net.Close()
	return m.roi.Close()
}
