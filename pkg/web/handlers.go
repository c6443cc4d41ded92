package web

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/engine"
	"github.com/teslashibe/go-lens/pkg/hub"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/record"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

// StatusResponse is the engine status plus camera details
type StatusResponse struct {
	engine.Telemetry
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Facing string `json:"facing"`
}

// SetEffectRequest selects the active effect
type SetEffectRequest struct {
	ID string `json:"id" validate:"required"`
}

// RecordingRequest starts a recording
type RecordingRequest struct {
	Facing string `json:"facing" validate:"omitempty,oneof=user environment"`
}

// TuningRequest updates tracking parameters; zero fields are ignored
type TuningRequest struct {
	SmoothingAlpha float64 `json:"smoothing_alpha" validate:"gte=0,lte=1"`
	EyeCalibration float64 `json:"eye_calibration" validate:"gte=0"`
	MouthOpenRatio float64 `json:"mouth_open_ratio" validate:"gte=0,lte=1"`
	BlinkRatio     float64 `json:"blink_ratio" validate:"gte=0,lte=1"`
}

// handleStatus returns the current engine telemetry
func (s *Server) handleStatus(c *fiber.Ctx) error {
	size := s.size()
	return c.JSON(StatusResponse{
		Telemetry: s.engine.Telemetry(),
		Width:     size.X,
		Height:    size.Y,
		Facing:    string(s.facing()),
	})
}

// handleStart starts the render loop
func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.engine.Start(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"running": s.engine.Running()})
}

// handleStop stops the render loop
func (s *Server) handleStop(c *fiber.Ctx) error {
	s.engine.Stop()
	return c.JSON(fiber.Map{"running": s.engine.Running()})
}

// handleListEffects returns every selectable effect
func (s *Server) handleListEffects(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active":  s.engine.Effect(),
		"effects": s.engine.Effects(),
	})
}

// handleSetEffect switches the active effect
func (s *Server) handleSetEffect(c *fiber.Ctx) error {
	var req SetEffectRequest
	if err := s.parse(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := s.engine.SetEffect(req.ID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"active": s.engine.Effect()})
}

// handleCapture returns a JPEG still of the current output
func (s *Server) handleCapture(c *fiber.Ctx) error {
	facing := s.facing()
	if q := c.Query("facing"); q != "" {
		f, err := record.ParseFacing(q)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		facing = f
	}

	still, err := s.engine.CaptureFrame(facing)
	if err != nil {
		return errorResponse(c, err)
	}

	c.Set("X-Capture-Id", still.ID)
	c.Set(fiber.HeaderContentType, still.MIMEType)
	return c.Send(still.Data)
}

// handleStartRecording starts recording the output
func (s *Server) handleStartRecording(c *fiber.Ctx) error {
	var req RecordingRequest
	if len(c.Body()) > 0 {
		if err := s.parse(c, &req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
	}

	facing := s.facing()
	if req.Facing != "" {
		facing = record.Facing(req.Facing)
	}

	id, err := s.engine.StartRecording(c.UserContext(), facing)
	if err != nil {
		return errorResponse(c, err)
	}
	log.Info("recording started", "id", id, "facing", facing)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// handleStopRecording finishes the recording and returns the encoded video
func (s *Server) handleStopRecording(c *fiber.Ctx) error {
	rec, err := s.engine.StopRecording()
	if err != nil {
		return errorResponse(c, err)
	}
	log.Info("recording stopped", "id", rec.ID, "frames", rec.Frames, "duration", rec.Duration)

	c.Set("X-Recording-Id", rec.ID)
	c.Set("X-Recording-Frames", strconv.Itoa(rec.Frames))
	c.Set(fiber.HeaderContentType, rec.MIMEType)
	return c.Send(rec.Data)
}

// handleGetTuning returns the tracking parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.engine.Tuning())
}

// handleSetTuning updates the tracking parameters
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var req TuningRequest
	if err := s.parse(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	s.engine.SetTuning(tracking.TuningParams(req))
	return c.JSON(s.engine.Tuning())
}

// handleGetCamera returns the camera configuration
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return errorJSON(c, fiber.StatusNotFound, "camera not configurable")
	}
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleSetCamera applies a partial camera update (optionally a preset)
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return errorJSON(c, fiber.StatusNotFound, "camera not configurable")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.cameras.UpdateConfig(params); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleListPresets returns the camera preset names
func (s *Server) handleListPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

// handleTelemetryWS streams telemetry samples, starting with the current one
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	if err := c.WriteJSON(hub.Envelope{Type: "telemetry", Data: s.engine.Telemetry()}); err != nil {
		c.Close()
		return
	}
	hub.NewClient(s.telemetryHub, c).Run()
}

// handlePreviewWS streams JPEG preview frames
func (s *Server) handlePreviewWS(c *websocket.Conn) {
	hub.NewClient(s.previewHub, c).Run()
}

// parse decodes and validates a JSON body
func (s *Server) parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errors.New("invalid request body")
	}
	if err := s.valid.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid field: %s", verrs[0].Field())
		}
		return err
	}
	return nil
}

// errorResponse maps engine errors to HTTP status codes
func errorResponse(c *fiber.Ctx, err error) error {
	return errorJSON(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lens.ErrUnknownEffect):
		return fiber.StatusBadRequest
	case errors.Is(err, record.ErrAlreadyRecording), errors.Is(err, record.ErrNotRecording):
		return fiber.StatusConflict
	case errors.Is(err, record.ErrNoFrame), errors.Is(err, record.ErrNoCodec),
		errors.Is(err, engine.ErrNotRunning):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
