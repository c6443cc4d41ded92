package tracking

import "github.com/teslashibe/go-lens/pkg/landmark"

// Smoother applies a per-point exponential moving average to successive
// landmark sets, one slot per detected face.
//
// Slots are index-stable only while detection is continuous: the first frame
// with no faces drops every slot, and a face that reappears is seeded from its
// raw reading with no smoothing transient.
type Smoother struct {
	cfg   Config
	faces []Face
}

// NewSmoother creates a smoother with no tracked faces
func NewSmoother(cfg Config) *Smoother {
	return &Smoother{cfg: cfg}
}

// Update smooths the current frame's raw sets against the previous frame and
// returns the new face list. raw holds normalized sets; width and height
// convert them to pixels. Sets shorter than Config.MinLandmarks are dropped.
func (s *Smoother) Update(raw []landmark.Set, width, height int) []Face {
	valid := make([]landmark.Set, 0, len(raw))
	for _, set := range raw {
		if len(set) < s.cfg.MinLandmarks || len(set) < landmark.MeshSize {
			continue
		}
		valid = append(valid, set)
		if s.cfg.MaxFaces > 0 && len(valid) == s.cfg.MaxFaces {
			break
		}
	}

	if len(valid) == 0 {
		s.faces = nil
		return nil
	}

	a := s.cfg.SmoothingAlpha
	faces := make([]Face, len(valid))
	for i, set := range valid {
		px := set.ToPixels(width, height)

		var prev landmark.Set
		if i < len(s.faces) {
			prev = s.faces[i].Points
		}

		for j := range px {
			if j >= len(prev) {
				continue // seed with the raw value
			}
			px[j] = landmark.Point{
				X: a*px[j].X + (1-a)*prev[j].X,
				Y: a*px[j].Y + (1-a)*prev[j].Y,
				Z: a*px[j].Z + (1-a)*prev[j].Z,
			}
		}

		faces[i] = Extract(px, s.cfg)
	}

	s.faces = faces
	return faces
}

// Faces returns the current tracked faces.
func (s *Smoother) Faces() []Face {
	return s.faces
}

// SetAlpha changes the smoothing factor, clamped to [0, 1].
func (s *Smoother) SetAlpha(alpha float64) {
	s.cfg.SmoothingAlpha = clamp(alpha, 0, 1)
}

// Config returns the active configuration.
func (s *Smoother) Config() Config {
	return s.cfg
}

// Reset drops every tracked slot.
func (s *Smoother) Reset() {
	s.faces = nil
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
