package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run on the software device without a window")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and frames")
	maxSteps := flag.Int("max-steps", 0, "Stop after N simulation steps (0 = unlimited)")
	volumePath := flag.String("volume", "", "Snapshot whose density is raycast instead of simulating")
	frameEvery := flag.Int("frame-every", 0, "Headless: export a PNG frame every N steps (0 = never)")
	stillPath := flag.String("still", "", "Headless: render one frame to this PNG after the run")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := game.Options{
		Config:     cfg,
		Headless:   *headless,
		LogStats:   *logStats,
		OutputDir:  *outputDir,
		VolumePath: *volumePath,
		FrameEvery: *frameEvery,
		Logger:     logger,
	}

	if *headless {
		os.Exit(runHeadless(opts, *maxSteps, *stillPath))
	}
	os.Exit(runWindow(opts, cfg, *maxSteps))
}

func runHeadless(opts game.Options, maxSteps int, stillPath string) int {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"max_steps", maxSteps,
		"frame_every", opts.FrameEvery,
		"volume_only", g.VolumeOnly(),
	)

	// A static volume has nothing to step.
	if !g.VolumeOnly() {
		for maxSteps <= 0 || g.Step() < maxSteps {
			if err := g.UpdateHeadless(); err != nil {
				slog.Error("step failed", "step", g.Step(), "error", err)
				return 1
			}
		}
		slog.Info("max steps reached", "step", g.Step())
	} else if stillPath == "" {
		stillPath = "still.png"
	}

	if stillPath != "" {
		if err := g.RenderStill(stillPath); err != nil {
			slog.Error("failed to render still", "error", err)
			return 1
		}
	}
	return 0
}

func runWindow(opts game.Options, cfg *config.Config, maxSteps int) int {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Plume")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		if err := g.Draw(); err != nil {
			slog.Error("frame failed", "step", g.Step(), "error", err)
			return 1
		}

		if maxSteps > 0 && g.Step() >= maxSteps {
			break
		}
	}
	return 0
}
