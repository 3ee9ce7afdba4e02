package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/camera"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/solver"
	"github.com/pthm-cable/plume/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title      string
	Step       int
	FPS        int32
	Paused     bool
	VolumeOnly bool
	Material   string
	Grid       gpu.Size
	Emitters   int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Grid: %s | Emitters: %d | Material: %s", data.Grid, data.Emitters, data.Material),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Step: %d | FPS: %d", data.Step, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	statusText := "Running"
	switch {
	case data.VolumeOnly:
		statusText = "VOLUME"
	case data.Paused:
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, 75, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase step timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	padding := r.Theme.Padding
	height := int32(len(telemetry.Phases)+4)*(r.Theme.LineHeight+2) + padding*2
	r.DrawPanel(p.x, p.y, p.width, height)

	title := "Step Timing (submit)"
	if stats.Synced {
		title = "Step Timing (GPU)"
	}
	x := p.x + padding
	y := p.y + padding
	y = r.DrawSectionHeader(x, y, title)
	y = r.DrawLabelValue(x, y, "Step", stats.AvgStepDuration.Round(time.Microsecond).String())
	y = r.DrawLabelValue(x, y, "Steps/s", fmt.Sprintf("%.1f", stats.StepsPerSecond))
	y = r.DrawLabelValue(x, y, "Passes", fmt.Sprintf("%.0f", stats.PassesPerStep))

	for _, phase := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[phase]
		if !ok {
			continue
		}
		value := avg.Round(time.Microsecond).String()
		if n := stats.PhasePasses[phase]; n > 0 {
			value = fmt.Sprintf("%s/%.0f", value, n)
		}
		y = r.DrawShareBar(x, y, phase, stats.PhasePct[phase], value, p.width-padding*2)
	}
}

// FieldPanel renders the latest field statistics.
type FieldPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewFieldPanel creates a new field statistics panel.
func NewFieldPanel(x, y, width int32) *FieldPanel {
	return &FieldPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (f *FieldPanel) SetPosition(x, y int32) {
	f.x = x
	f.y = y
}

// Draw renders the field panel. Height is the grid height, used to show
// how far the plume has risen.
func (f *FieldPanel) Draw(stats telemetry.FieldStats, height int) {
	r := f.renderer
	padding := r.Theme.Padding
	r.DrawPanel(f.x, f.y, f.width, 12*r.Theme.LineHeight+padding*2)

	x := f.x + padding
	y := f.y + padding
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Fields @ step %d", stats.Step))
	y = r.DrawLabelValue(x, y, "Total density", fmt.Sprintf("%.1f", stats.TotalDensity))
	y = r.DrawLabelValue(x, y, "Max density", fmt.Sprintf("%.3f", stats.MaxDensity))
	y = r.DrawLabelValue(x, y, "Density p90", fmt.Sprintf("%.3f", stats.DensityP90))
	rise := float32(0)
	if height > 0 {
		rise = float32(stats.CentroidY) / float32(height)
	}
	y = r.DrawBar(x, y, "Plume height", rise, f.width-padding*2)
	y = r.DrawLabelValue(x, y, "Temperature", fmt.Sprintf("%.2f ± %.2f", stats.MeanTemperature, stats.StdTemperature))
	y = r.DrawLabelValue(x, y, "Max temp", fmt.Sprintf("%.2f", stats.MaxTemperature))
	y = r.DrawLabelValue(x, y, "Max speed", fmt.Sprintf("%.3f", stats.MaxSpeed))
	r.DrawLabelValue(x, y, "Max |div|", fmt.Sprintf("%.2e", stats.MaxDivergence))
}

// cubeEdges are the 12 edges of the [-1,1]³ domain as corner index pairs;
// corner i has x = bit 0, y = bit 1, z = bit 2.
var cubeEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

func cubeCorner(i int) mgl32.Vec3 {
	c := mgl32.Vec3{-1, -1, -1}
	for axis := range 3 {
		if i&(1<<axis) != 0 {
			c[axis] = 1
		}
	}
	return c
}

// DrawDomainBox outlines the simulation cube.
func DrawDomainBox(cam *camera.Camera) {
	color := rl.Color{R: 120, G: 130, B: 140, A: 160}
	for _, e := range cubeEdges {
		ax, ay, aok := cam.WorldToScreen(cubeCorner(e[0]))
		bx, by, bok := cam.WorldToScreen(cubeCorner(e[1]))
		if !aok || !bok {
			continue
		}
		rl.DrawLineV(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, color)
	}
}

// DrawEmitters marks every impulse source with a ring sized to its
// radius.
func DrawEmitters(cam *camera.Camera, grid gpu.Size, emitters *solver.Emitters) {
	emitters.Each(func(imp solver.Impulse) {
		center := camera.GridToModel(imp.Position, grid.W, grid.H, grid.D)
		sx, sy, ok := cam.WorldToScreen(center)
		if !ok {
			return
		}
		edge := center.Add(mgl32.Vec3{2 * imp.Radius / float32(grid.W), 0, 0})
		ex, ey, _ := cam.WorldToScreen(edge)
		radius := mgl32.Vec2{ex - sx, ey - sy}.Len()
		rl.DrawCircleLines(int32(sx), int32(sy), max(radius, 3), rl.Orange)
		rl.DrawText(fmt.Sprintf("%.0f°", imp.Temperature), int32(sx)+6, int32(sy)-6, 12, rl.Orange)
	})
}
