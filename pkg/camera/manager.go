package camera

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	applyMu sync.Mutex // Serializes SetConfig so callbacks see updates in order

	mu     sync.RWMutex
	config Config

	// OnConfigChange applies a validated config to the device. The stored
	// config only changes when it returns nil.
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates and applies a configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	if apply := m.OnConfigChange; apply != nil {
		if err := apply(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// setters maps JSON field names to typed assignments.
var setters = map[string]func(cfg *Config, v interface{}) bool{
	"device": func(cfg *Config, v interface{}) bool {
		s, ok := v.(string)
		cfg.Device = s
		return ok
	},
	"facing": func(cfg *Config, v interface{}) bool {
		s, ok := v.(string)
		cfg.Facing = s
		return ok
	},
	"width":         intSetter(func(cfg *Config) *int { return &cfg.Width }),
	"height":        intSetter(func(cfg *Config) *int { return &cfg.Height }),
	"framerate":     intSetter(func(cfg *Config) *int { return &cfg.Framerate }),
	"warmup_frames": intSetter(func(cfg *Config) *int { return &cfg.WarmupFrames }),
	"brightness": func(cfg *Config, v interface{}) bool {
		f, ok := toFloat(v)
		cfg.Brightness = f
		return ok
	},
	"auto_focus": func(cfg *Config, v interface{}) bool {
		b, ok := v.(bool)
		cfg.AutoFocus = b
		return ok
	},
}

func intSetter(field func(*Config) *int) func(*Config, interface{}) bool {
	return func(cfg *Config, v interface{}) bool {
		n, ok := toInt(v)
		*field(cfg) = n
		return ok
	}
}

// UpdateConfig applies a partial update given as JSON field names. A
// "preset" key replaces everything but the device before the remaining
// fields are applied. Unknown keys and mistyped values are rejected.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if raw, ok := params["preset"]; ok {
		name, _ := raw.(string)
		preset := GetPreset(name)
		if preset == nil {
			return fmt.Errorf("unknown preset: %v", raw)
		}
		device := cfg.Device
		cfg = *preset
		cfg.Device = device
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		if key != "preset" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		set, ok := setters[key]
		if !ok {
			return fmt.Errorf("unknown camera setting %q", key)
		}
		if !set(&cfg, params[key]) {
			return fmt.Errorf("invalid value for %s: %v", key, params[key])
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	data, _ := json.Marshal(m.GetConfig())
	var result map[string]interface{}
	json.Unmarshal(data, &result)
	return result
}

// toInt accepts whole numbers only; 640.5 is not a width.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
