package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/ui"
)

const (
	toolbarTop    = 10
	toolbarHeight = 28
	toolbarMargin = 10
	panelWidth    = 300
)

const controlsLegend = "[Space] Pause  [R] Restart  [M] Material  [S] Snapshot  [Tab] Overlays  [Home] Reset view  Drag: orbit  Wheel: zoom"

// Update handles input. The simulation advances in Draw, where the
// renderer steps and renders in one pass over the device.
func (g *Game) Update() {
	g.handleInput()
	g.perf.RecordFrame()
}

// Draw steps and renders the volume, then draws the HUD over it.
func (g *Game) Draw() error {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	rl.ClearBackground(rl.Color{R: Background.R, G: Background.G, B: Background.B, A: 255})
	// Flush raylib's batch before the device issues its own GL calls.
	rl.DrawRenderBatchActive()

	err := g.runStep(g.renderFrame)
	if g.present != nil {
		g.present.Present(g.softDev.Screen())
	}

	g.drawOverlays()
	g.drawUI()
	return err
}

func (g *Game) drawOverlays() {
	if g.overlays.IsEnabled(ui.OverlayDomainBox) {
		ui.DrawDomainBox(g.camera)
	}
	if g.overlays.IsEnabled(ui.OverlayEmitters) && !g.VolumeOnly() {
		grid := gpu.Size{W: g.cfg.Grid.Width, H: g.cfg.Grid.Height, D: g.cfg.Grid.Depth}
		ui.DrawEmitters(g.camera, grid, g.renderer.Solver().Emitters())
	}
}

func (g *Game) drawUI() {
	solver := g.renderer.Solver()
	g.hud.Draw(ui.HUDData{
		Title:      "Plume",
		Step:       g.Step(),
		FPS:        rl.GetFPS(),
		Paused:     g.renderer.Paused(),
		VolumeOnly: g.VolumeOnly(),
		Material:   g.renderer.Material().String(),
		Grid:       solver.GridSize(),
		Emitters:   solver.Emitters().Len(),
	})
	g.controls.Draw(g.overlays)

	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.perfPanel.Draw(g.perf.Stats())
	}
	if g.overlays.IsEnabled(ui.OverlayFields) && g.haveStats {
		g.fieldPanel.Draw(g.lastStats, g.cfg.Grid.Height)
	}
	if g.overlays.IsEnabled(ui.OverlayToolbar) {
		g.handleToolbar(g.toolbar.Draw(g.screenWidth-toolbarMargin, toolbarTop,
			g.renderer.Paused(), g.renderer.Material().String()))
	}

	g.hud.DrawControls(int32(g.screenHeight), controlsLegend)
}

func (g *Game) handleToolbar(a ui.ToolbarActions) {
	if !a.Any() {
		return
	}
	if a.Restart {
		g.Restart()
	}
	if a.TogglePause {
		g.togglePause()
	}
	if a.NextMaterial {
		g.nextMaterial()
	}
	if a.ResetCamera {
		g.camera.Reset()
	}
}

// overToolbar reports whether p lies on the toolbar, so clicks there do
// not orbit the camera.
func (g *Game) overToolbar(p rl.Vector2) bool {
	if !g.overlays.IsEnabled(ui.OverlayToolbar) {
		return false
	}
	right := g.screenWidth - toolbarMargin
	return p.X >= right-g.toolbar.Width() && p.X <= right &&
		p.Y >= toolbarTop && p.Y <= toolbarTop+toolbarHeight
}

// layoutPanels pins the right-hand panels below the toolbar.
func (g *Game) layoutPanels() {
	x := int32(g.screenWidth) - panelWidth - toolbarMargin
	y := int32(toolbarTop + toolbarHeight + toolbarMargin)
	g.perfPanel.SetPosition(x, y)
	g.fieldPanel.SetPosition(x, y)
}
