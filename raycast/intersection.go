// Package raycast renders a density volume in two passes: the cube
// intersection pass finds where each view ray enters and leaves the
// domain, and the raycast pass marches between those points.
package raycast

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
)

// IntersectionSurface holds, per pixel, the domain-space points where the
// view ray enters (attachment 0) and leaves (attachment 1) the [-1,1]³
// cube. Alpha is 1 where the cube covers the pixel; an all-zero texel
// means no intersection.
type IntersectionSurface struct {
	dev      gpu.Device
	lib      *gpu.ShaderLibrary
	viewport gpu.Viewport
	textures []gpu.Texture
	fb       gpu.Framebuffer
}

// NewIntersectionSurface allocates both targets at the viewport size.
func NewIntersectionSurface(dev gpu.Device, lib *gpu.ShaderLibrary, vp gpu.Viewport) (*IntersectionSurface, error) {
	s := &IntersectionSurface{dev: dev, lib: lib}
	if err := s.allocate(vp); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *IntersectionSurface) allocate(vp gpu.Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return fmt.Errorf("%w: intersection surface %dx%d", gpu.ErrAllocation, vp.Width, vp.Height)
	}
	texs, fb, err := s.dev.CreateSurface(vp.Width, vp.Height, 2)
	if err != nil {
		return fmt.Errorf("creating %dx%d intersection surface: %w", vp.Width, vp.Height, err)
	}
	s.viewport = vp
	s.textures = texs
	s.fb = fb
	return nil
}

// Resize reallocates both targets. On failure the old targets are kept.
func (s *IntersectionSurface) Resize(vp gpu.Viewport) error {
	if vp == s.viewport {
		return nil
	}
	old := *s
	if err := s.allocate(vp); err != nil {
		*s = old
		return err
	}
	old.Release()
	return nil
}

// Viewport is the surface's current size.
func (s *IntersectionSurface) Viewport() gpu.Viewport { return s.viewport }

// Entry holds the object-space point where each pixel's ray enters the cube.
func (s *IntersectionSurface) Entry() gpu.Texture { return s.textures[0] }

// Exit holds the object-space point where each pixel's ray leaves the cube.
func (s *IntersectionSurface) Exit() gpu.Texture { return s.textures[1] }

// Compute clears both targets and rasterizes the domain cube with culling
// off and additive blending, so each covered pixel receives exactly one
// front-face and one back-face fragment.
func (s *IntersectionSurface) Compute(modelView, projection mgl32.Mat4) {
	saved := s.dev.State()
	defer s.dev.RestoreState(saved)

	s.dev.SetViewport(s.viewport)
	s.dev.Clear(s.fb, 0)
	s.dev.Draw(gpu.Pass{
		Program:  s.lib.Program(gpu.ProgRayCubeIntersection),
		Target:   s.fb,
		Geometry: gpu.GeometryCube,
		Blend:    gpu.BlendAdditive,
		Cull:     false,
		Uniforms: gpu.Uniforms{
			"modelview":  modelView,
			"projection": projection,
		},
	})
}

// Read returns copies of the entry and exit targets as RGBA floats, rows
// bottom to top.
func (s *IntersectionSurface) Read() (entry, exit []float32, err error) {
	if entry, err = s.dev.Download(s.Entry()); err != nil {
		return nil, nil, err
	}
	if exit, err = s.dev.Download(s.Exit()); err != nil {
		return nil, nil, err
	}
	return entry, exit, nil
}

// Release frees both targets.
func (s *IntersectionSurface) Release() {
	s.dev.DeleteFramebuffer(s.fb)
	for _, t := range s.textures {
		s.dev.DeleteTexture(t)
	}
}
