package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/internal/httpc"
	"github.com/teslashibe/go-lens/pkg/tracking"
	"gocv.io/x/gocv"
)

var _ tracking.Segmenter = (*Segmenter)(nil)

// Segmenter runs a selfie-segmentation network and returns a person mask
type Segmenter struct {
	net    gocv.Net
	config SegmenterConfig
	mu     sync.Mutex
}

// NewSegmenter loads the segmentation model
func NewSegmenter(cfg SegmenterConfig) (*Segmenter, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load segmentation model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Segmenter{net: net, config: cfg}, nil
}

// SegmenterLoader adapts NewSegmenter to the lazy segmenter boundary
func SegmenterLoader(cfg SegmenterConfig) tracking.SegmenterLoader {
	return func(ctx context.Context) (tracking.Segmenter, error) {
		if err := httpc.EnsureFile(ctx, cfg.BaseURL, cfg.ModelPath); err != nil {
			return nil, fmt.Errorf("%w: %v", tracking.ErrModelUnavailable, err)
		}
		s, err := NewSegmenter(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tracking.ErrModelUnavailable, err)
		}
		return s, nil
	}
}

// Segment returns an InputSize x InputSize mask, 255 where the model sees a person
func (s *Segmenter) Segment(ctx context.Context, frame image.Image) (*gg.Mask, error) {
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

	n := s.config.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(n, n),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.net.SetInput(blob, "")
	out := s.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read segmentation output: %w", err)
	}
	if len(data) < n*n {
		return nil, fmt.Errorf("segmentation output has %d values, want %d", len(data), n*n)
	}

	return probabilityMask(data, n), nil
}

// probabilityMask converts row-major foreground probabilities into a mask
func probabilityMask(probs []float32, size int) *gg.Mask {
	mask := gg.NewMask(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := probs[y*size+x]
			switch {
			case p <= 0:
				continue
			case p >= 1:
				mask.Set(x, y, 255)
			default:
				mask.Set(x, y, uint8(p*255+0.5))
			}
		}
	}
	return mask
}

// Close releases the model
func (s *Segmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.net.Close()
	return nil
}
