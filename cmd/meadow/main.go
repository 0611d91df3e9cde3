package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/gekko3d/meadow"
	"github.com/gekko3d/meadow/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	frames := flag.Int("frames", -1, "Stop after N frames (-1 = use config, 0 = unlimited)")
	backend := flag.String("backend", "", "Kernel backend: cpu or gpu (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV telemetry and config snapshot")
	preview := flag.String("preview", "", "Write a top-down PNG of the field on exit")
	seed := flag.Int64("seed", 0, "Field seed (0 = use config)")
	debug := flag.Bool("debug", false, "Enable debug logging and kernel assertions")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *frames >= 0 {
		cfg.Run.Frames = *frames
	}
	if *backend != "" {
		cfg.Kernel.Backend = *backend
	}
	if *outputDir != "" {
		cfg.Telemetry.Dir = *outputDir
	}
	if *preview != "" {
		cfg.Preview.Path = *preview
	}
	if *seed != 0 {
		cfg.Field.Seed = *seed
	}
	if *debug {
		cfg.Run.Debug = true
		cfg.Kernel.DebugAssertions = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	app := meadow.NewSimulationApp(cfg)
	defer func() {
		if grass := meadow.Resource[meadow.Grass](app); grass != nil {
			grass.Close()
		}
		if tel := meadow.Resource[meadow.Telemetry](app); tel != nil {
			tel.Close()
		}
	}()

	slog.Info("starting simulation",
		"run_id", app.RunID(),
		"backend", cfg.Kernel.Backend,
		"frames", cfg.Run.Frames,
		"blades", cfg.FieldParams().Count(),
	)

	if err := app.Run(); err != nil {
		slog.Error("simulation failed", "run_id", app.RunID(), "error", err)
		return 1
	}
	return 0
}
