// Package gpu defines the device abstraction the simulation and renderer
// submit their passes to.
//
// A Device owns textures, framebuffers and programs. Every simulation
// stage and both raycasting passes are expressed as a Pass drawn into a
// framebuffer: the device runs the pass's program once per covered texel
// and blends the result into the target. Two backends exist: gpu/gldev
// runs the GLSL programs on OpenGL, gpu/soft runs equivalent Go kernels
// on the CPU.
package gpu

import "fmt"

// Texture identifies a device texture (3D volume or 2D surface attachment).
// The zero value is never a valid texture.
type Texture uint32

// Framebuffer identifies a render target.
type Framebuffer uint32

// Screen is the display framebuffer.
const Screen Framebuffer = 0

// Size is the extent of a 3D grid in texels.
type Size struct {
	W, H, D int
}

// Texels returns the number of texels in the grid.
func (s Size) Texels() int {
	return s.W * s.H * s.D
}

// Valid reports whether every dimension is positive.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0 && s.D > 0
}

// Max returns the largest dimension.
func (s Size) Max() int {
	return max(s.W, s.H, s.D)
}

// Viewport returns the 2D viewport covering one slice of the grid.
func (s Size) Viewport() Viewport {
	return Viewport{Width: s.W, Height: s.H}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%dx%d", s.W, s.H, s.D)
}

// Viewport is a 2D drawing extent in pixels, origin at the bottom-left.
type Viewport struct {
	Width, Height int
}

// Blend selects how fragment outputs combine with the target.
type Blend int

const (
	// BlendNone overwrites the target.
	BlendNone Blend = iota
	// BlendAdditive is glBlendFunc(ONE, ONE).
	BlendAdditive
	// BlendAlpha is glBlendFunc(SRC_ALPHA, ONE_MINUS_SRC_ALPHA).
	BlendAlpha
)

func (b Blend) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendAdditive:
		return "additive"
	case BlendAlpha:
		return "alpha"
	default:
		return fmt.Sprintf("blend(%d)", int(b))
	}
}

// Geometry selects the primitive a pass rasterizes.
type Geometry int

const (
	// GeometrySlices draws one full-viewport quad per layer of a volume
	// target, so the program runs once per texel of the volume.
	GeometrySlices Geometry = iota
	// GeometryCube draws the 12 triangles of the [-1,1]^3 cube.
	GeometryCube
	// GeometryQuad draws one full-viewport quad.
	GeometryQuad
)

// Sampler binds a texture to a named sampler uniform.
type Sampler struct {
	Name    string
	Texture Texture
}

// Pass describes one draw call.
type Pass struct {
	Program  Program
	Target   Framebuffer
	Geometry Geometry
	Blend    Blend
	Cull     bool
	Uniforms Uniforms
	Samplers []Sampler
}

// State is the pipeline state a pass leaves behind. Callers that change
// it save and restore it around their passes.
type State struct {
	Viewport Viewport
	Blend    Blend
	Cull     bool
	// Native holds backend-specific state and is opaque to callers.
	Native any
}

// Limits reports device capabilities that bound allocations.
type Limits struct {
	// MaxVolumeSize is the largest allowed extent of any volume dimension.
	MaxVolumeSize int
	// MaxTexels bounds the texel count of a single texture. Zero means
	// the device does not enforce a budget of its own.
	MaxTexels int
}

// Device executes passes. Implementations are not safe for concurrent use;
// passes are submitted in order on one goroutine and each pass's writes
// are visible to the next pass.
type Device interface {
	Name() string
	Limits() Limits

	// CreateVolume allocates a zero-initialized 3D texture with the given
	// number of float components and a layered framebuffer bound to it.
	CreateVolume(size Size, components int) (Texture, Framebuffer, error)
	// CreateSurface allocates a framebuffer with n RGBA float 2D
	// attachments, all zero-initialized.
	CreateSurface(width, height, n int) ([]Texture, Framebuffer, error)
	DeleteTexture(t Texture)
	DeleteFramebuffer(fb Framebuffer)

	// Clear sets every component of every attachment of fb to value.
	Clear(fb Framebuffer, value float32)
	// Upload replaces the contents of t. data is x-fastest, then y, then z,
	// with the texture's components interleaved.
	Upload(t Texture, data []float32) error
	// Download returns a copy of t in the layout Upload accepts.
	Download(t Texture) ([]float32, error)

	CompileProgram(id ProgramID, src Source) (Program, error)
	DeleteProgram(p Program)

	SetViewport(vp Viewport)
	State() State
	RestoreState(s State)

	Draw(p Pass)
	Close() error
}
