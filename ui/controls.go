package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsPanel is the overlay legend, shown with Tab.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the overlay legend and returns the Y below it. Nothing
// is drawn while hidden.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry) int32 {
	if !c.visible {
		return c.y
	}
	r := c.renderer
	pad, line := r.Theme.Padding, r.Theme.LineHeight

	cats := overlays.Categories()
	rows := 1
	for _, cat := range cats {
		rows += 1 + len(overlays.ByCategory(cat))
	}
	r.DrawPanel(c.x, c.y, c.width, int32(rows)*line+int32(len(cats))*4+pad*2+4)

	y := c.y + pad
	rl.DrawText("Overlays", c.x+pad, y, 16, rl.White)
	y += line + 4
	for _, cat := range cats {
		y = r.DrawSectionHeader(c.x+pad, y, cat.Label())
		for _, desc := range overlays.ByCategory(cat) {
			c.drawToggle(c.x+pad, y, desc, overlays.IsEnabled(desc.ID), c.width-pad*2)
			y += line
		}
		y += 4
	}
	return y
}

// drawToggle draws one overlay row: a status square, the name and the
// key on the right.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	t := c.renderer.Theme
	status, name := t.BarBg, t.LabelColor
	if enabled {
		status, name = t.BarFillLow, rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, status)
	rl.DrawText(desc.Name, x+14, y, t.FontSize, name)

	if desc.KeyLabel != "" {
		key := fmt.Sprintf("[%s]", desc.KeyLabel)
		rl.DrawText(key, x+width-rl.MeasureText(key, t.FontSize), y, t.FontSize, rl.Gray)
	}
}

// ToolbarActions reports which toolbar buttons were pressed this frame.
type ToolbarActions struct {
	Restart      bool
	TogglePause  bool
	NextMaterial bool
	ResetCamera  bool
}

// Any reports whether any button was pressed.
func (a ToolbarActions) Any() bool {
	return a.Restart || a.TogglePause || a.NextMaterial || a.ResetCamera
}

// Toolbar is a row of buttons along the top right of the window.
type Toolbar struct {
	buttonW, buttonH, gap float32
}

// NewToolbar creates a toolbar with default button sizes.
func NewToolbar() *Toolbar {
	return &Toolbar{buttonW: 100, buttonH: 28, gap: 8}
}

// Width returns the toolbar's total width.
func (t *Toolbar) Width() float32 {
	return 4*t.buttonW + 3*t.gap
}

// Draw renders the toolbar at its right edge x and returns the buttons
// clicked. material is the label of the active material.
func (t *Toolbar) Draw(right, top float32, paused bool, material string) ToolbarActions {
	x := right - t.Width()
	button := func(label string) bool {
		clicked := gui.Button(rl.Rectangle{X: x, Y: top, Width: t.buttonW, Height: t.buttonH}, label)
		x += t.buttonW + t.gap
		return clicked
	}

	var a ToolbarActions
	a.Restart = button("Restart")
	a.TogglePause = button(toggleText(paused, "Resume", "Pause"))
	a.NextMaterial = button("Material: " + material)
	a.ResetCamera = button("Reset View")
	return a
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
