// Shading tune tool - runs a small simulation on the software device and
// previews the raycast with sliders for the shading parameters.
//
// Usage: go run ./cmd/shadetune -config config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/camera"
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/game"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/soft"
	"github.com/pthm-cable/plume/raycast"
	"github.com/pthm-cable/plume/renderer"
	"github.com/pthm-cable/plume/solver"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	renderSize   = 192
	panelWidth   = windowWidth - previewSize - 30
	tuneGrid     = 32
)

// slider draws a labelled slider bar and returns the new value.
func slider(x float32, y *float32, label, format string, value, lo, hi float32) float32 {
	rl.DrawText(label, int32(x), int32(*y), 14, rl.Gray)
	*y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: float32(panelWidth - 80), Height: 20},
		fmt.Sprintf(format, lo), fmt.Sprintf(format, hi),
		value, lo, hi,
	)
	rl.DrawText(fmt.Sprintf(format, v), int32(x+float32(panelWidth-70)), int32(*y+2), 16, rl.DarkGray)
	*y += 35
	return v
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shadetune: %v\n", err)
		os.Exit(1)
	}
	// A small grid keeps the software device interactive.
	cfg.Grid = config.GridConfig{Width: tuneGrid, Height: tuneGrid, Depth: tuneGrid}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rl.InitWindow(windowWidth, windowHeight, "Plume Shading Tune")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	dev := soft.New(soft.Options{Workers: cfg.Device.Workers, Logger: logger})
	defer dev.Close()
	vp := gpu.Viewport{Width: renderSize, Height: renderSize}
	opts := renderer.OptionsFromConfig(cfg, vp)
	opts.Solver.Impulses = []solver.Impulse{solver.DefaultImpulse(opts.Solver.Size)}
	r, err := renderer.New(dev, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shadetune: %v\n", err)
		os.Exit(1)
	}
	defer r.Release()

	cam := camera.New(cfg.Camera, renderSize, renderSize)
	defaults := r.Raycaster().Params()
	params := defaults

	img := rl.GenImageColor(renderSize, renderSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	cloud := false
	spinning := true

	for !rl.WindowShouldClose() {
		if spinning {
			cam.Orbit(0.5*rl.GetFrameTime(), 0)
		}
		r.Raycaster().SetParams(params)
		if err := r.Step(cam.ModelView(), cam.Projection(), vp); err != nil {
			fmt.Fprintf(os.Stderr, "shadetune: %v\n", err)
			os.Exit(1)
		}
		w, h, rgba := dev.Screen()
		rl.UpdateTexture(texture, game.ScreenPixels(w, h, rgba, game.Background))

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		// Draw preview
		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: renderSize, Height: renderSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Step: %d  Material: %s  FPS: %d", r.Steps(), params.Material, rl.GetFPS()), 15, statsY, 16, rl.DarkGray)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Raycast Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		params.Absorption = slider(panelX, &panelY, "Absorption (opacity per unit length)", "%.1f", params.Absorption, 0, 40)
		params.StepSize = slider(panelX, &panelY, "Step size (ray march, model units)", "%.3f", params.StepSize, 0.005, 0.1)
		params.AlphaCutoff = slider(panelX, &panelY, "Alpha cutoff (early termination)", "%.2f", params.AlphaCutoff, 0.5, 1)
		params.LightSteps = int32(slider(panelX, &panelY, "Light steps (shadow samples)", "%.0f", float32(params.LightSteps), 0, 32))
		params.AmbientLight = slider(panelX, &panelY, "Ambient light", "%.2f", params.AmbientLight, 0, 1)
		params.FireTemperature = slider(panelX, &panelY, "Fire temperature (full heat)", "%.1f", params.FireTemperature, 1, 40)

		// Buttons
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, params.Material.Next().String()) {
			params.Material = params.Material.Next()
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, toggleText(spinning, "Stop", "Spin")) {
			spinning = !spinning
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(cloud, "Simulate", "Cloud")) {
			cloud = !cloud
			if cloud {
				size := r.Solver().GridSize()
				if err := r.SetVolumeData(size, field.CloudVolume(size)); err != nil {
					logger.Error("failed to set cloud volume", "error", err)
					cloud = false
				}
			} else {
				r.ClearVolumeData()
			}
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Restart") {
			r.Restart()
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
		}
		panelY += 55

		// Output YAML
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := raycastYAML(params)
		for _, line := range yaml {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			text := ""
			for _, line := range yaml {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

func raycastYAML(p raycast.Params) []string {
	return []string{
		"raycast:",
		fmt.Sprintf("  material: %s", p.Material),
		fmt.Sprintf("  step_size: %.3f", p.StepSize),
		fmt.Sprintf("  absorption: %.1f", p.Absorption),
		fmt.Sprintf("  alpha_cutoff: %.2f", p.AlphaCutoff),
		fmt.Sprintf("  light_steps: %d", p.LightSteps),
		fmt.Sprintf("  ambient_light: %.2f", p.AmbientLight),
		fmt.Sprintf("  fire_temperature: %.1f", p.FireTemperature),
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
