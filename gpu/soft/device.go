// Package soft implements gpu.Device on the CPU.
//
// Every program is a Go kernel with the same arithmetic as its GLSL
// counterpart: texel fetches clamp to the edge, filtered reads are
// trilinear with texel centers at (i+0.5)/n, and blending follows
// glBlendFunc. Passes are split across a persistent worker pool by slice
// (volume targets) or row (2D targets) and complete before Draw returns.
package soft

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
)

// Default limits.
const (
	DefaultMaxVolumeSize = 512
	DefaultMaxTexels     = 1 << 25
)

// Options configures a software device.
type Options struct {
	// MaxVolumeSize bounds each volume dimension (0 = DefaultMaxVolumeSize).
	MaxVolumeSize int
	// MaxTexels bounds the texel count of one texture (0 = DefaultMaxTexels).
	MaxTexels int
	// Workers is the size of the worker pool (0 = GOMAXPROCS).
	Workers int
	Logger  *slog.Logger
}

type framebuffer struct {
	attachments []gpu.Texture
}

// Device is a CPU implementation of gpu.Device.
type Device struct {
	limits gpu.Limits
	logger *slog.Logger
	pool   *workerPool

	textures     map[gpu.Texture]*texture
	framebuffers map[gpu.Framebuffer]*framebuffer
	programs     map[uint32]gpu.ProgramID
	nextID       uint32

	screen   *texture
	viewport gpu.Viewport
	blend    gpu.Blend
	cull     bool

	draws int
}

// New creates a software device.
func New(opts Options) *Device {
	if opts.MaxVolumeSize <= 0 {
		opts.MaxVolumeSize = DefaultMaxVolumeSize
	}
	if opts.MaxTexels <= 0 {
		opts.MaxTexels = DefaultMaxTexels
	}
	d := &Device{
		limits: gpu.Limits{
			MaxVolumeSize: opts.MaxVolumeSize,
			MaxTexels:     opts.MaxTexels,
		},
		logger:       gpu.LoggerOrDiscard(opts.Logger),
		pool:         newWorkerPool(opts.Workers),
		textures:     make(map[gpu.Texture]*texture),
		framebuffers: make(map[gpu.Framebuffer]*framebuffer),
		programs:     make(map[uint32]gpu.ProgramID),
		screen:       newTexture(1, 1, 1, 4),
		viewport:     gpu.Viewport{Width: 1, Height: 1},
	}
	d.logger.Info("software device created", "workers", d.pool.numWorkers, "max_volume_size", opts.MaxVolumeSize)
	return d
}

func (d *Device) Name() string       { return "soft" }
func (d *Device) Limits() gpu.Limits { return d.limits }

func (d *Device) newID() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) checkBudget(texels int) error {
	if texels > d.limits.MaxTexels {
		return fmt.Errorf("%w: %d texels exceeds budget of %d", gpu.ErrAllocation, texels, d.limits.MaxTexels)
	}
	return nil
}

// CreateVolume allocates a zeroed volume and a layered framebuffer over it.
func (d *Device) CreateVolume(size gpu.Size, components int) (gpu.Texture, gpu.Framebuffer, error) {
	if !size.Valid() || components < 1 || components > 4 {
		return 0, 0, fmt.Errorf("%w: volume %s with %d components", gpu.ErrAllocation, size, components)
	}
	if size.Max() > d.limits.MaxVolumeSize {
		return 0, 0, fmt.Errorf("%w: volume %s exceeds max dimension %d", gpu.ErrAllocation, size, d.limits.MaxVolumeSize)
	}
	if err := d.checkBudget(size.Texels()); err != nil {
		return 0, 0, err
	}

	tex := gpu.Texture(d.newID())
	d.textures[tex] = newTexture(size.W, size.H, size.D, components)
	fb := gpu.Framebuffer(d.newID())
	d.framebuffers[fb] = &framebuffer{attachments: []gpu.Texture{tex}}
	return tex, fb, nil
}

// CreateSurface allocates n zeroed RGBA attachments and a framebuffer.
func (d *Device) CreateSurface(width, height, n int) ([]gpu.Texture, gpu.Framebuffer, error) {
	if width <= 0 || height <= 0 || n < 1 {
		return nil, 0, fmt.Errorf("%w: surface %dx%d with %d attachments", gpu.ErrAllocation, width, height, n)
	}
	if width > d.limits.MaxVolumeSize*8 || height > d.limits.MaxVolumeSize*8 {
		return nil, 0, fmt.Errorf("%w: surface %dx%d too large", gpu.ErrAllocation, width, height)
	}
	if err := d.checkBudget(width * height); err != nil {
		return nil, 0, err
	}

	texs := make([]gpu.Texture, n)
	for i := range texs {
		texs[i] = gpu.Texture(d.newID())
		d.textures[texs[i]] = newTexture(width, height, 1, 4)
	}
	fb := gpu.Framebuffer(d.newID())
	d.framebuffers[fb] = &framebuffer{attachments: texs}
	return texs, fb, nil
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	delete(d.textures, t)
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	if fb != gpu.Screen {
		delete(d.framebuffers, fb)
	}
}

// targets returns the attachments of fb. The screen is resized to the
// current viewport first.
func (d *Device) targets(fb gpu.Framebuffer) []*texture {
	if fb == gpu.Screen {
		if d.screen.w != d.viewport.Width || d.screen.h != d.viewport.Height {
			d.screen = newTexture(d.viewport.Width, d.viewport.Height, 1, 4)
		}
		return []*texture{d.screen}
	}
	f, ok := d.framebuffers[fb]
	if !ok {
		panic(fmt.Sprintf("soft: unknown framebuffer %d", fb))
	}
	out := make([]*texture, len(f.attachments))
	for i, t := range f.attachments {
		tex, ok := d.textures[t]
		if !ok {
			panic(fmt.Sprintf("soft: framebuffer %d has released attachment %d", fb, t))
		}
		out[i] = tex
	}
	return out
}

func (d *Device) Clear(fb gpu.Framebuffer, value float32) {
	for _, t := range d.targets(fb) {
		t.fill(value)
	}
}

func (d *Device) Upload(t gpu.Texture, data []float32) error {
	tex, ok := d.textures[t]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpu.ErrUnknownHandle, t)
	}
	if len(data) != len(tex.data) {
		return fmt.Errorf("%w: got %d floats, texture %d holds %d", gpu.ErrDataSize, len(data), t, len(tex.data))
	}
	copy(tex.data, data)
	return nil
}

func (d *Device) Download(t gpu.Texture) ([]float32, error) {
	tex, ok := d.textures[t]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", gpu.ErrUnknownHandle, t)
	}
	out := make([]float32, len(tex.data))
	copy(out, tex.data)
	return out, nil
}

// Screen returns a copy of the display buffer as RGBA floats, rows from
// bottom to top.
func (d *Device) Screen() (width, height int, rgba []float32) {
	out := make([]float32, len(d.screen.data))
	copy(out, d.screen.data)
	return d.screen.w, d.screen.h, out
}

// CompileProgram binds id to its kernel. Sources must carry a vertex and
// a fragment stage, matching what a GL driver would reject.
func (d *Device) CompileProgram(id gpu.ProgramID, src gpu.Source) (gpu.Program, error) {
	if src.Vertex == "" || src.Fragment == "" {
		return gpu.Program{}, fmt.Errorf("%w: %s: missing vertex or fragment stage", gpu.ErrShaderLink, id)
	}
	_, slice := sliceKernels[id]
	_, quad := quadKernels[id]
	if !slice && !quad && !cubePrograms[id] {
		return gpu.Program{}, fmt.Errorf("%w: %s: no kernel", gpu.ErrShaderLink, id)
	}
	h := d.newID()
	d.programs[h] = id
	return gpu.Program{ID: id, Handle: h}, nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	delete(d.programs, p.Handle)
}

func (d *Device) SetViewport(vp gpu.Viewport) {
	d.viewport = vp
}

func (d *Device) State() gpu.State {
	return gpu.State{Viewport: d.viewport, Blend: d.blend, Cull: d.cull}
}

func (d *Device) RestoreState(s gpu.State) {
	d.viewport = s.Viewport
	d.blend = s.Blend
	d.cull = s.Cull
}

// Draws returns the number of passes drawn since creation.
func (d *Device) Draws() int {
	return d.draws
}

// Finish returns at once: passes run synchronously.
func (d *Device) Finish() {}

// Draw executes one pass. Binding a texture both as sampler and target is
// a programming error and panics.
func (d *Device) Draw(p gpu.Pass) {
	id, ok := d.programs[p.Program.Handle]
	if !ok {
		panic(fmt.Sprintf("soft: draw with unknown program %s", p.Program.ID))
	}
	d.blend = p.Blend
	d.cull = p.Cull
	d.draws++

	targets := d.targets(p.Target)
	in := &inputs{u: p.Uniforms, samplers: make(map[string]*texture, len(p.Samplers))}
	for _, s := range p.Samplers {
		tex, ok := d.textures[s.Texture]
		if !ok {
			panic(fmt.Sprintf("soft: sampler %q bound to unknown texture %d", s.Name, s.Texture))
		}
		for _, t := range targets {
			if t == tex {
				panic(fmt.Sprintf("soft: %s reads sampler %q from its own target", id, s.Name))
			}
		}
		in.samplers[s.Name] = tex
	}

	switch p.Geometry {
	case gpu.GeometrySlices:
		d.drawSlices(id, in, targets[0])
	case gpu.GeometryCube:
		d.drawCube(in, targets)
	case gpu.GeometryQuad:
		d.drawQuad(id, in, targets[0])
	default:
		panic(fmt.Sprintf("soft: unknown geometry %d", p.Geometry))
	}
}

func (d *Device) drawSlices(id gpu.ProgramID, in *inputs, target *texture) {
	k, ok := sliceKernels[id]
	if !ok {
		panic(fmt.Sprintf("soft: %s cannot draw slices", id))
	}
	frag := k(in)
	w := min(d.viewport.Width, target.w)
	h := min(d.viewport.Height, target.h)
	blend := d.blend
	d.pool.run(target.d, func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					i := target.index(x, y, z)
					blendInto(target.data[i:i+target.comps], frag(x, y, z), blend)
				}
			}
		}
	})
}

func (d *Device) drawQuad(id gpu.ProgramID, in *inputs, target *texture) {
	k, ok := quadKernels[id]
	if !ok {
		panic(fmt.Sprintf("soft: %s cannot draw a quad", id))
	}
	frag := k(in)
	w := min(d.viewport.Width, target.w)
	h := min(d.viewport.Height, target.h)
	blend := d.blend
	d.pool.run(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := target.index(x, y, 0)
				blendInto(target.data[i:i+target.comps], frag(x, y), blend)
			}
		}
	})
}

// drawCube rasterizes the domain cube for the intersection program:
// front faces write (position, 1) to attachment 0, back faces to
// attachment 1.
func (d *Device) drawCube(in *inputs, targets []*texture) {
	mvp := in.u.Mat4("projection").Mul4(in.u.Mat4("modelview"))
	vp := gpu.Viewport{
		Width:  min(d.viewport.Width, targets[0].w),
		Height: min(d.viewport.Height, targets[0].h),
	}
	tris := setupCube(mvp, vp, d.cull)
	blend := d.blend
	d.pool.run(vp.Height, func(y0, y1 int) {
		rasterizeRows(tris, y0, y1, func(x, y int, pos mgl32.Vec3, front bool) {
			hit := pos.Vec4(1)
			outs := [2]mgl32.Vec4{hit, {}}
			if !front {
				outs = [2]mgl32.Vec4{{}, hit}
			}
			for i, t := range targets {
				if i >= len(outs) {
					break
				}
				j := t.index(x, y, 0)
				blendInto(t.data[j:j+t.comps], outs[i], blend)
			}
		})
	})
}

func blendInto(dst []float32, src mgl32.Vec4, mode gpu.Blend) {
	switch mode {
	case gpu.BlendAdditive:
		for i := range dst {
			dst[i] += src[i]
		}
	case gpu.BlendAlpha:
		a := src[3]
		for i := range dst {
			dst[i] = src[i]*a + dst[i]*(1-a)
		}
	default:
		copy(dst, src[:len(dst)])
	}
}

// Close stops the worker pool.
func (d *Device) Close() error {
	d.pool.stop()
	return nil
}

var _ gpu.Device = (*Device)(nil)
