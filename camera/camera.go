// Package camera provides an orbit camera around the simulation domain.
package camera

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
)

// pitchLimit keeps the camera off the poles, where the up vector
// degenerates.
const pitchLimit = math.Pi/2 - 0.01

// Camera orbits the domain cube's center, which spans [-1,1]³ in model
// space.
type Camera struct {
	// Spherical position around the origin. Yaw turns about +y, pitch
	// lifts toward +y.
	Yaw, Pitch float32
	Distance   float32

	// Distance constraints
	MinDistance, MaxDistance float32

	// Projection, FOV in radians
	FOV, Near, Far float32

	// Viewport dimensions (framebuffer size)
	ViewportW, ViewportH float32

	home struct{ yaw, pitch, distance float32 }
}

// New creates a camera from the configured orbit defaults.
func New(cfg config.CameraConfig, viewportW, viewportH float32) *Camera {
	c := &Camera{
		Yaw:         float32(cfg.Yaw),
		Pitch:       clamp(float32(cfg.Pitch), -pitchLimit, pitchLimit),
		Distance:    float32(cfg.Distance),
		MinDistance: 1.8, // just outside the cube's bounding sphere
		MaxDistance: float32(cfg.Far) / 2,
		FOV:         mgl32.DegToRad(float32(cfg.FOV)),
		Near:        float32(cfg.Near),
		Far:         float32(cfg.Far),
		ViewportW:   viewportW,
		ViewportH:   viewportH,
	}
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
	c.home.yaw, c.home.pitch, c.home.distance = c.Yaw, c.Pitch, c.Distance
	return c
}

// Eye returns the camera position in model space. Yaw 0, pitch 0 sits
// on +z.
func (c *Camera) Eye() mgl32.Vec3 {
	sy, cy := math32.Sincos(c.Yaw)
	sp, cp := math32.Sincos(c.Pitch)
	return mgl32.Vec3{cp * sy, sp, cp * cy}.Mul(c.Distance)
}

// ModelView returns the view transform looking at the origin.
func (c *Camera) ModelView() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective transform for the current viewport.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, c.Aspect(), c.Near, c.Far)
}

// Aspect is the viewport width over height.
func (c *Camera) Aspect() float32 {
	if c.ViewportH <= 0 {
		return 1
	}
	return c.ViewportW / c.ViewportH
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Orbit turns the camera by the given angles in radians. Pitch is
// clamped short of straight up or down.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw = math32.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, -pitchLimit, pitchLimit)
}

// SetDistance sets the orbit radius, clamped to min/max.
func (c *Camera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the orbit radius by factor, so factors above 1 move in.
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Reset returns the camera to its initial orbit.
func (c *Camera) Reset() {
	c.Yaw, c.Pitch, c.Distance = c.home.yaw, c.home.pitch, c.home.distance
}

// WorldToScreen projects a model-space point to screen pixels, origin at
// the top-left. ok is false for points behind the camera.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (sx, sy float32, ok bool) {
	clip := c.Projection().Mul4(c.ModelView()).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	sx = (ndc.X() + 1) / 2 * c.ViewportW
	sy = (1 - ndc.Y()) / 2 * c.ViewportH
	return sx, sy, true
}

// GridToModel maps a grid-cell position to model space for a grid of
// the given size.
func GridToModel(p mgl32.Vec3, w, h, d int) mgl32.Vec3 {
	return mgl32.Vec3{
		2*p.X()/float32(w) - 1,
		2*p.Y()/float32(h) - 1,
		2*p.Z()/float32(d) - 1,
	}
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
