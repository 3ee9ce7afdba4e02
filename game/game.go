// Package game runs the host loop around the renderer: it owns the
// device, the orbit camera and telemetry, and drives them either
// headless on the software device or inside a raylib window.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/plume/camera"
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/soft"
	"github.com/pthm-cable/plume/renderer"
	"github.com/pthm-cable/plume/telemetry"
	"github.com/pthm-cable/plume/ui"
)

// perfWindowSteps is the number of steps the perf collector averages over.
const perfWindowSteps = 60

// Options configure a Game.
type Options struct {
	Config    *config.Config
	Headless  bool
	LogStats  bool
	OutputDir string
	// VolumePath is a snapshot whose density is shown instead of the
	// simulation.
	VolumePath string
	// FrameEvery renders and exports a PNG every N headless steps
	// (0 = never).
	FrameEvery int
	Logger     *slog.Logger
}

// Game holds the complete application state.
type Game struct {
	cfg    *config.Config
	logger *slog.Logger

	dev      gpu.Device
	softDev  *soft.Device // set when running on the software device
	renderer *renderer.Renderer
	camera   *camera.Camera

	// Telemetry
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	bookmarks     *telemetry.BookmarkDetector
	lastStats     telemetry.FieldStats
	haveStats     bool
	lastPerfFlush time.Time
	logStats      bool

	// Headless
	headless   bool
	frameEvery int
	frameDir   string

	// UI (interactive only)
	hud        *ui.HUD
	perfPanel  *ui.PerfPanel
	fieldPanel *ui.FieldPanel
	controls   *ui.ControlsPanel
	toolbar    *ui.Toolbar
	overlays   *ui.OverlayRegistry
	present    *softPresenter

	screenWidth, screenHeight float32
}

// NewGameWithOptions creates the device, renderer and telemetry. In
// interactive mode the raylib window must already be open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Game{
		cfg:        cfg,
		logger:     logger,
		headless:   opts.Headless,
		logStats:   opts.LogStats,
		frameEvery: opts.FrameEvery,
		perf:       telemetry.NewPerfCollector(perfWindowSteps),
		bookmarks:  telemetry.NewBookmarkDetector(10, cfg.Grid.Height),
	}
	g.screenWidth, g.screenHeight = g.windowSize()

	if err := g.init(opts); err != nil {
		g.Unload()
		return nil, err
	}
	return g, nil
}

func (g *Game) init(opts Options) error {
	var err error
	if g.dev, err = g.newDevice(); err != nil {
		return err
	}

	vp := g.viewport()
	g.renderer, err = renderer.New(g.dev, renderer.OptionsFromConfig(g.cfg, vp), g.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	g.perf.SetDeviceHooks(deviceHooks(g.dev, g.cfg.Telemetry.SyncPhases))
	g.renderer.SetPhaseRecorder(g.perf)
	g.camera = camera.New(g.cfg.Camera, float32(vp.Width), float32(vp.Height))

	if opts.VolumePath != "" {
		if err := g.loadVolume(opts.VolumePath); err != nil {
			return err
		}
	}

	if g.output, err = telemetry.NewOutputManager(opts.OutputDir); err != nil {
		return err
	}
	if err := g.output.WriteConfig(g.cfg); err != nil {
		g.logger.Error("failed to write config", "error", err)
	}
	if g.frameEvery > 0 {
		g.frameDir = frameDir(opts.OutputDir)
	}
	g.lastPerfFlush = time.Now()

	if !g.headless {
		g.hud = ui.NewHUD()
		g.perfPanel = ui.NewPerfPanel(0, 0, panelWidth)
		g.fieldPanel = ui.NewFieldPanel(0, 0, panelWidth)
		g.controls = ui.NewControlsPanel(10, 100, 220)
		g.toolbar = ui.NewToolbar()
		g.overlays = ui.NewOverlayRegistry()
		g.overlays.SetEnabled(ui.OverlayToolbar, true)
		g.overlays.SetEnabled(ui.OverlayDomainBox, true)
		g.layoutPanels()
	}
	return nil
}

// loadVolume shows a saved snapshot's density instead of the simulation.
func (g *Game) loadVolume(path string) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	size := gpu.Size{W: snap.Width, H: snap.Height, D: snap.Depth}
	if err := g.renderer.SetVolumeData(size, snap.Density); err != nil {
		return fmt.Errorf("loading volume %s: %w", path, err)
	}
	g.logger.Info("showing saved volume", "path", path, "step", snap.Step, "grid", size.String())
	return nil
}

// Step returns the number of simulation steps run since the last restart.
func (g *Game) Step() int {
	return g.renderer.Steps()
}

// VolumeOnly reports whether the game shows a static volume.
func (g *Game) VolumeOnly() bool {
	return g.renderer.VolumeOnly()
}

// Renderer exposes the renderer.
func (g *Game) Renderer() *renderer.Renderer {
	return g.renderer
}

// Restart zeroes the simulation and forgets telemetry history.
func (g *Game) Restart() {
	g.renderer.Restart()
	g.bookmarks.Reset()
	g.haveStats = false
}

// viewport is the current render size in pixels.
func (g *Game) viewport() gpu.Viewport {
	return gpu.Viewport{Width: int(g.screenWidth), Height: int(g.screenHeight)}
}
