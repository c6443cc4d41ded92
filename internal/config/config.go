// Package config loads go-lens service settings from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables always win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variable prefix
const Prefix = "GOLENS_"

// Config holds every service setting.
type Config struct {
	Port string `validate:"required,numeric"`

	// Camera
	Camera string `validate:"required"`
	Width  int    `validate:"min=160,max=3840"`
	Height int    `validate:"min=120,max=2160"`
	FPS    int    `validate:"min=1,max=120"`
	Facing string `validate:"oneof=user environment"`

	// Models
	YuNetModel    string `validate:"required"`
	FaceMeshModel string `validate:"required"`
	SegmentModel  string `validate:"required"`
	ModelBaseURL  string `validate:"omitempty,url"`

	// Logging
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:          "8080",
		Camera:        "0",
		Width:         640,
		Height:        480,
		FPS:           30,
		Facing:        "user",
		YuNetModel:    "models/face_detection_yunet.onnx",
		FaceMeshModel: "models/face_landmark.onnx",
		SegmentModel:  "models/selfie_segmentation.onnx",
		LogLevel:      "info",
	}
}

var validate = validator.New()

// Load reads .env (if present) and the environment, then validates.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a validated Config from a variable lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	str := func(name string, dst *string) {
		if v := getenv(Prefix + name); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		v := getenv(Prefix + name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", Prefix, name, err))
			return
		}
		*dst = n
	}

	str("PORT", &cfg.Port)
	str("CAMERA", &cfg.Camera)
	num("WIDTH", &cfg.Width)
	num("HEIGHT", &cfg.Height)
	num("FPS", &cfg.FPS)
	str("FACING", &cfg.Facing)
	str("YUNET_MODEL", &cfg.YuNetModel)
	str("FACEMESH_MODEL", &cfg.FaceMeshModel)
	str("SEGMENT_MODEL", &cfg.SegmentModel)
	str("MODEL_BASE_URL", &cfg.ModelBaseURL)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
