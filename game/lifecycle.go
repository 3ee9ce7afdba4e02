package game

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/gldev"
	"github.com/pthm-cable/plume/gpu/soft"
)

// Device backends accepted in device.backend.
const (
	BackendGL   = "gl"
	BackendSoft = "soft"
)

// newDevice creates the configured device. Headless runs always use the
// software device.
func (g *Game) newDevice() (gpu.Device, error) {
	backend := g.cfg.Device.Backend
	if g.headless {
		backend = BackendSoft
	}

	switch backend {
	case BackendSoft:
		d := soft.New(soft.Options{
			MaxVolumeSize: g.cfg.Device.MaxVolumeSize,
			Workers:       g.cfg.Device.Workers,
			Logger:        g.logger,
		})
		g.softDev = d
		if !g.headless {
			g.present = &softPresenter{}
		}
		return d, nil
	case BackendGL:
		if g.headless {
			return nil, fmt.Errorf("the %s backend needs a window", BackendGL)
		}
		d, err := gldev.New(g.logger)
		if err != nil {
			return nil, fmt.Errorf("creating GL device: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown device backend %q", backend)
	}
}

// windowSize returns the render size: the configured screen when
// headless, the window otherwise.
func (g *Game) windowSize() (float32, float32) {
	if g.headless {
		return float32(g.cfg.Screen.Width), float32(g.cfg.Screen.Height)
	}
	return float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
}

// Unload releases all resources. It is safe on a partly built Game.
func (g *Game) Unload() {
	if g.renderer != nil && g.renderer.Steps() > 0 {
		g.flushPerf()
	}
	if err := g.output.Close(); err != nil {
		g.logger.Error("failed to close output files", "error", err)
	}
	if g.present != nil {
		g.present.Unload()
	}
	if g.renderer != nil {
		g.renderer.Release()
	}
	if g.dev != nil {
		if err := g.dev.Close(); err != nil {
			g.logger.Error("failed to close device", "error", err)
		}
	}
}
