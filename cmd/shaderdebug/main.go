// Shader debug tool - runs the simulation on the GL device and writes the
// raycast frame to a PNG file for inspection.
//
// Usage: go run ./cmd/shaderdebug -steps 60 -material fire -out debug.png
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/camera"
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/gldev"
	"github.com/pthm-cable/plume/raycast"
	"github.com/pthm-cable/plume/renderer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	width := flag.Int("width", 512, "Render width")
	height := flag.Int("height", 512, "Render height")
	steps := flag.Int("steps", 60, "Simulation steps before the captured frame")
	material := flag.String("material", "", "Material override: smoke, fire or both")
	cloud := flag.Bool("cloud", false, "Raycast the Gaussian test volume instead of simulating")
	flag.Parse()

	if err := run(*configPath, *outPath, *width, *height, *steps, *material, *cloud); err != nil {
		fmt.Fprintf(os.Stderr, "shaderdebug: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, outPath string, width, height, steps int, material string, cloud bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if material != "" {
		m, err := config.ParseMaterial(material)
		if err != nil {
			return err
		}
		cfg.Derived.Material = m
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Initialize raylib with hidden window
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(width), int32(height), "Shader Debug")
	defer rl.CloseWindow()

	dev, err := gldev.New(logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	vp := gpu.Viewport{Width: width, Height: height}
	r, err := renderer.New(dev, renderer.OptionsFromConfig(cfg, vp), logger)
	if err != nil {
		return err
	}
	defer r.Release()

	if cloud {
		size := r.Solver().GridSize()
		if err := r.SetVolumeData(size, field.CloudVolume(size)); err != nil {
			return err
		}
	}
	for range steps {
		r.Simulate()
	}

	cam := camera.New(cfg.Camera, float32(width), float32(height))
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	rl.DrawRenderBatchActive()
	err = r.Step(cam.ModelView(), cam.Projection(), vp)
	// Read the back buffer before EndDrawing swaps it away.
	img := rl.LoadImageFromScreen()
	rl.EndDrawing()
	defer rl.UnloadImage(img)
	if err != nil {
		return err
	}

	if !rl.ExportImage(*img, outPath) {
		return fmt.Errorf("failed to export %s", outPath)
	}
	fmt.Printf("Frame rendered to: %s (%dx%d, %d steps, %s)\n",
		outPath, width, height, r.Steps(), raycast.Material(cfg.Derived.Material))
	return nil
}
