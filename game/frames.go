package game

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Background is composited under the volume in exported frames and in
// the software presenter.
var Background = color.RGBA{R: 12, G: 14, B: 18, A: 255}

func frameDir(outputDir string) string {
	if outputDir == "" {
		return "frames"
	}
	return filepath.Join(outputDir, "frames")
}

// UpdateHeadless runs one step on the software device. Frames are only
// rendered when one falls due for export.
func (g *Game) UpdateHeadless() error {
	return g.runStep(func() error {
		if g.frameEvery > 0 && (g.Step()+1)%g.frameEvery == 0 {
			if err := g.renderFrame(); err != nil {
				return err
			}
			path := filepath.Join(g.frameDir, fmt.Sprintf("frame_%06d.png", g.Step()))
			return g.ExportFrame(path)
		}
		g.renderer.Simulate()
		return nil
	})
}

// RenderStill renders the current state once, without stepping, and
// exports it as a PNG.
func (g *Game) RenderStill(path string) error {
	paused := g.renderer.Paused()
	g.renderer.SetPaused(true)
	defer g.renderer.SetPaused(paused)
	if err := g.renderFrame(); err != nil {
		return err
	}
	return g.ExportFrame(path)
}

func (g *Game) renderFrame() error {
	return g.renderer.Step(g.camera.ModelView(), g.camera.Projection(), g.viewport())
}

// ExportFrame writes the software screen to a PNG.
func (g *Game) ExportFrame(path string) error {
	if g.softDev == nil {
		return fmt.Errorf("frame export needs the %s backend", BackendSoft)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating frame directory: %w", err)
	}
	w, h, rgba := g.softDev.Screen()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range ScreenPixels(w, h, rgba, Background) {
		img.SetRGBA(i%w, i/w, c)
	}

	rlImg := rl.NewImageFromImage(img)
	defer rl.UnloadImage(rlImg)
	if !rl.ExportImage(*rlImg, path) {
		return fmt.Errorf("exporting frame %s", path)
	}
	g.logger.Info("frame exported", "path", path, "step", g.Step())
	return nil
}

// ScreenPixels converts a software screen, rows bottom to top, into
// 8-bit pixels rows top to bottom over bg. Alpha blending onto the zero
// cleared screen leaves color premultiplied and alpha squared.
func ScreenPixels(w, h int, rgba []float32, bg color.RGBA) []color.RGBA {
	out := make([]color.RGBA, w*h)
	for y := range h {
		src := rgba[(h-1-y)*w*4:]
		for x := range w {
			p := src[x*4 : x*4+4]
			cover := 1 - math32.Sqrt(max(p[3], 0))
			out[y*w+x] = color.RGBA{
				R: to8(p[0] + float32(bg.R)/255*cover),
				G: to8(p[1] + float32(bg.G)/255*cover),
				B: to8(p[2] + float32(bg.B)/255*cover),
				A: 255,
			}
		}
	}
	return out
}

func to8(v float32) uint8 {
	return uint8(math32.Round(min(max(v, 0), 1) * 255))
}

// softPresenter shows the software screen in the raylib window.
type softPresenter struct {
	tex  rl.Texture2D
	w, h int
}

// Present uploads the screen and draws it over the whole window.
func (p *softPresenter) Present(w, h int, rgba []float32) {
	if w != p.w || h != p.h {
		p.Unload()
		img := rl.GenImageColor(w, h, rl.Blank)
		p.tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		p.w, p.h = w, h
	}
	rl.UpdateTexture(p.tex, ScreenPixels(w, h, rgba, Background))
	rl.DrawTexture(p.tex, 0, 0, rl.White)
}

// Unload frees the texture.
func (p *softPresenter) Unload() {
	if p.w > 0 {
		rl.UnloadTexture(p.tex)
		p.w, p.h = 0, 0
	}
}
