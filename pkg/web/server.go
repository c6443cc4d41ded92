// Package web serves the host-page API for the lens engine: lifecycle,
// effect selection, capture, recording, tuning, camera settings, and the
// telemetry and preview websocket streams.
package web

import (
	"context"
	"image"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/engine"
	"github.com/teslashibe/go-lens/pkg/hub"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/record"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

// DefaultPreviewInterval paces the preview stream (~10 fps)
const DefaultPreviewInterval = 100 * time.Millisecond

// Engine is the subset of *engine.Engine the API drives
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool

	SetEffect(id string) error
	Effect() lens.ID
	Effects() []lens.Info

	CaptureFrame(facing record.Facing) (*record.Still, error)
	Preview(facing record.Facing) ([]byte, error)
	StartRecording(ctx context.Context, facing record.Facing) (string, error)
	StopRecording() (*record.Recording, error)

	Telemetry() engine.Telemetry
	Tuning() tracking.TuningParams
	SetTuning(params tracking.TuningParams)
}

var _ Engine = (*engine.Engine)(nil)

// Server is the host-page API server
type Server struct {
	app     *fiber.App
	port    string
	engine  Engine
	cameras *camera.Manager
	valid   *validator.Validate

	// PreviewInterval is the delay between preview frames
	PreviewInterval time.Duration

	telemetryHub *hub.Hub
	previewHub   *hub.Hub
}

// NewServer creates the API server. cameras may be nil when the frame
// source is not a configurable camera.
func NewServer(port string, eng Engine, cameras *camera.Manager) *Server {
	s := &Server{
		port:            port,
		engine:          eng,
		cameras:         cameras,
		valid:           validator.New(),
		PreviewInterval: DefaultPreviewInterval,
		telemetryHub:    hub.New("telemetry"),
		previewHub:      hub.New("preview"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-lens",
		DisableStartupMessage: true,
		BodyLimit:             1 << 20,
	})

	app.Use(cors.New(cors.Config{
		ExposeHeaders: "X-Capture-Id, X-Recording-Id, X-Recording-Frames",
	}))

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/start", s.handleStart)
	api.Post("/stop", s.handleStop)

	api.Get("/effects", s.handleListEffects)
	api.Put("/effect", s.handleSetEffect)

	api.Post("/capture", s.handleCapture)
	api.Post("/recording/start", s.handleStartRecording)
	api.Post("/recording/stop", s.handleStopRecording)

	api.Get("/tuning", s.handleGetTuning)
	api.Put("/tuning", s.handleSetTuning)

	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleSetCamera)
	api.Get("/camera/presets", s.handleListPresets)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs and the preview pump. It blocks until ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.telemetryHub.Run(ctx)
	go s.previewHub.Run(ctx)
	s.pumpPreview(ctx)
}

// Start runs the hubs in the background and listens on the configured port.
func (s *Server) Start(ctx context.Context) error {
	go s.Run(ctx)
	log.Info("web api listening", "addr", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Error("web server error", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// UpdateTelemetry broadcasts a telemetry sample to every telemetry client.
// It implements engine.StateUpdater.
func (s *Server) UpdateTelemetry(t engine.Telemetry) {
	if err := s.telemetryHub.BroadcastJSON(hub.Envelope{Type: "telemetry", Data: t}); err != nil {
		log.Warn("telemetry broadcast failed", "error", err)
	}
}

// pumpPreview broadcasts composed JPEG frames while anyone is watching.
func (s *Server) pumpPreview(ctx context.Context) {
	interval := s.PreviewInterval
	if interval <= 0 {
		interval = DefaultPreviewInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.previewHub.ClientCount() == 0 || !s.engine.Running() {
			continue
		}
		frame, err := s.engine.Preview(s.facing())
		if err != nil {
			continue
		}
		s.previewHub.BroadcastBinary(frame)
	}
}

// facing is the active camera's facing mode, defaulting to the user camera.
func (s *Server) facing() record.Facing {
	if s.cameras == nil {
		return record.FacingUser
	}
	f, err := record.ParseFacing(s.cameras.GetConfig().Facing)
	if err != nil {
		return record.FacingUser
	}
	return f
}

// size is the active camera's resolution, or zero without a manager.
func (s *Server) size() image.Point {
	if s.cameras == nil {
		return image.Point{}
	}
	cfg := s.cameras.GetConfig()
	return image.Pt(cfg.Width, cfg.Height)
}
