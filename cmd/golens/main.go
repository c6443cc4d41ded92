// golens serves live AR face lenses and background replacement over an
// HTTP/websocket API for a browser host page.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/engine"
	"github.com/teslashibe/go-lens/pkg/tracking/detection"
	"github.com/teslashibe/go-lens/pkg/web"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Log every skipped frame and perception miss")
	port := flag.String("port", "", "HTTP port (overrides GOLENS_PORT)")
	effect := flag.String("effect", "", "Effect to select at startup (e.g. dog, bg_beach)")
	noStart := flag.Bool("no-start", false, "Wait for /api/start instead of rendering immediately")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Init("info")
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *debugFlag || *debugFrames {
		level = "debug"
	}
	log.InitWithFile(level, log.FileOptions{Path: cfg.LogFile})
	gg.SetLogger(log.L())
	debug.Enabled = *debugFlag || *debugFrames
	debug.Frames = *debugFrames

	if *port != "" {
		cfg.Port = *port
	}

	if err := run(cfg, *effect, !*noStart); err != nil {
		log.Error("golens exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, effect string, autostart bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	camCfg := camera.DefaultConfig()
	camCfg.Device = cfg.Camera
	camCfg.Width, camCfg.Height, camCfg.Framerate = cfg.Width, cfg.Height, cfg.FPS
	camCfg.Facing = cfg.Facing

	source, err := camera.Open(camCfg)
	if err != nil {
		return err
	}
	defer source.Close()

	cameras := camera.NewManager(camCfg)
	cameras.OnConfigChange = source.Apply

	go func() {
		if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, camera.ErrClosed) {
			log.Error("camera stopped", "error", err)
		}
	}()

	meshCfg := detection.DefaultConfig()
	meshCfg.ModelPath = cfg.YuNetModel
	meshCfg.MeshModelPath = cfg.FaceMeshModel
	meshCfg.ModelBaseURL = cfg.ModelBaseURL

	segCfg := detection.DefaultSegmenterConfig()
	segCfg.ModelPath = cfg.SegmentModel
	segCfg.BaseURL = cfg.ModelBaseURL

	eng := engine.New(engine.DefaultConfig(), source, engine.Models{
		Landmarks: detection.Loader(meshCfg),
		Segmenter: detection.SegmenterLoader(segCfg),
	})
	defer func() {
		if err := eng.Close(); err != nil {
			log.Warn("engine close", "error", err)
		}
	}()

	server := web.NewServer(cfg.Port, eng, cameras)
	eng.SetStateUpdater(server)

	if effect != "" {
		if err := eng.SetEffect(effect); err != nil {
			return err
		}
	}
	if autostart {
		if err := eng.Start(ctx); err != nil {
			return err
		}
	}

	server.StartAsync(ctx)
	<-ctx.Done()

	log.Info("shutting down")
	return server.Shutdown()
}
