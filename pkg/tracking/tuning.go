package tracking

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting the engine.
type TuningParams struct {
	SmoothingAlpha float64 `json:"smoothing_alpha"` // EMA alpha (0.3=smooth, 0.7=responsive)
	EyeCalibration float64 `json:"eye_calibration"` // px of eye-corner distance at scale 1.0
	MouthOpenRatio float64 `json:"mouth_open_ratio"`
	BlinkRatio     float64 `json:"blink_ratio"`
}

// GetTuningParams returns the current tuning parameters.
func (p *Perception) GetTuningParams() TuningParams {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.smoother.Config()
	return TuningParams{
		SmoothingAlpha: cfg.SmoothingAlpha,
		EyeCalibration: cfg.EyeCalibration,
		MouthOpenRatio: cfg.MouthOpenRatio,
		BlinkRatio:     cfg.BlinkRatio,
	}
}

// SetTuningParams updates tuning parameters at runtime.
// Only non-zero values are applied.
func (p *Perception) SetTuningParams(params TuningParams) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.smoother.Config()
	if params.SmoothingAlpha > 0 {
		cfg.SmoothingAlpha = clamp(params.SmoothingAlpha, 0.0, 1.0)
	}
	if params.EyeCalibration > 0 {
		cfg.EyeCalibration = params.EyeCalibration
	}
	if params.MouthOpenRatio > 0 {
		cfg.MouthOpenRatio = clamp(params.MouthOpenRatio, 0.0, 1.0)
	}
	if params.BlinkRatio > 0 {
		cfg.BlinkRatio = clamp(params.BlinkRatio, 0.0, 1.0)
	}
	p.smoother.cfg = cfg
}
