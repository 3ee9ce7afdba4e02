package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		g.togglePause()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.Restart()
	}
	if rl.IsKeyPressed(rl.KeyM) {
		g.nextMaterial()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		if path, err := g.SaveSnapshot(); err != nil {
			g.logger.Warn("snapshot not saved", "error", err)
		} else {
			g.logger.Info("snapshot saved", "path", path)
		}
	}
	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		if id, on, ok := g.overlays.HandleKeyPress(key); ok {
			g.logger.Debug("overlay toggled", "overlay", id, "enabled", on)
		}
	}

	g.handleCameraInput()
}

func (g *Game) togglePause() {
	g.renderer.SetPaused(!g.renderer.Paused())
}

func (g *Game) nextMaterial() {
	m := g.renderer.Material().Next()
	g.renderer.SetMaterial(m)
	g.logger.Info("material changed", "material", m.String())
}

// handleResize checks for window resize and propagates new dimensions.
// The renderer resizes its intersection surface on the next step.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := g.windowSize()
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.camera.Resize(w, h)
	g.layoutPanels()
}

// handleCameraInput orbits with a left-drag or the arrow keys and zooms
// with the wheel or +/-.
func (g *Game) handleCameraInput() {
	cfg := g.cfg.Camera
	speed := float32(cfg.OrbitSpeed)

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !g.overToolbar(rl.GetMousePosition()) {
		d := rl.GetMouseDelta()
		g.camera.Orbit(-d.X*speed, d.Y*speed)
	}

	keySpeed := speed * 4
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Orbit(keySpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Orbit(-keySpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Orbit(0, keySpeed)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Orbit(0, -keySpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*float32(cfg.ZoomSpeed))
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
