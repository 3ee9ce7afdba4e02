// Package gldev implements gpu.Device on OpenGL 3.3 core.
//
// Volumes are 3D float textures attached to layered framebuffers; slice
// passes draw one instanced quad per layer and a geometry shader routes
// each instance to its layer through gl_Layer. The device expects a
// current GL context (raylib's window provides one) and leaves GL state
// as each pass set it; callers save and restore around their passes.
package gldev

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/pthm-cable/plume/gpu"
)

type glTexture struct {
	target   uint32 // TEXTURE_3D or TEXTURE_2D
	w, h, d  int
	comps    int
	internal int32
	format   uint32
}

type glFramebuffer struct {
	attachments []gpu.Texture
}

// Device is an OpenGL implementation of gpu.Device.
type Device struct {
	logger *slog.Logger
	limits gpu.Limits

	textures     map[gpu.Texture]*glTexture
	framebuffers map[gpu.Framebuffer]*glFramebuffer
	programs     map[uint32]*glProgram

	quadVAO uint32
	cubeVAO uint32
	buffers []uint32

	draws int
}

// New initializes the GL bindings against the current context and
// uploads the shared quad and cube geometry.
func New(logger *slog.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	logger = gpu.LoggerOrDiscard(logger)

	var max3D int32
	gl.GetIntegerv(gl.MAX_3D_TEXTURE_SIZE, &max3D)

	d := &Device{
		logger:       logger,
		limits:       gpu.Limits{MaxVolumeSize: int(max3D)},
		textures:     make(map[gpu.Texture]*glTexture),
		framebuffers: make(map[gpu.Framebuffer]*glFramebuffer),
		programs:     make(map[uint32]*glProgram),
	}
	d.createGeometry()

	logger.Info("opengl device created",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"max_3d_texture_size", max3D,
	)
	return d, nil
}

func (d *Device) Name() string       { return "opengl" }
func (d *Device) Limits() gpu.Limits { return d.limits }

// formats maps a component count to the internal format and the client
// format used for transfers. Three-component volumes are stored as RGBA
// because RGB32F need not be color-renderable.
func formats(comps int) (int32, uint32) {
	switch comps {
	case 1:
		return gl.R32F, gl.RED
	case 2:
		return gl.RG32F, gl.RG
	case 3:
		return gl.RGBA32F, gl.RGB
	default:
		return gl.RGBA32F, gl.RGBA
	}
}

func (d *Device) CreateVolume(size gpu.Size, components int) (gpu.Texture, gpu.Framebuffer, error) {
	if !size.Valid() || components < 1 || components > 4 {
		return 0, 0, fmt.Errorf("%w: volume %s with %d components", gpu.ErrAllocation, size, components)
	}
	if size.Max() > d.limits.MaxVolumeSize {
		return 0, 0, fmt.Errorf("%w: volume %s exceeds max dimension %d", gpu.ErrAllocation, size, d.limits.MaxVolumeSize)
	}
	drainErrors()

	internal, format := formats(components)
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_3D, tex)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.TexImage3D(gl.TEXTURE_3D, 0, internal, int32(size.W), int32(size.H), int32(size.D), 0, format, gl.FLOAT, nil)
	gl.BindTexture(gl.TEXTURE_3D, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, 0, fmt.Errorf("%w: volume %s: gl error 0x%x", gpu.ErrAllocation, size, code)
	}

	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &tex)
		return 0, 0, fmt.Errorf("%w: volume %s: framebuffer status 0x%x", gpu.ErrAllocation, size, status)
	}
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	t := gpu.Texture(tex)
	d.textures[t] = &glTexture{
		target: gl.TEXTURE_3D, w: size.W, h: size.H, d: size.D,
		comps: components, internal: internal, format: format,
	}
	fb := gpu.Framebuffer(fbo)
	d.framebuffers[fb] = &glFramebuffer{attachments: []gpu.Texture{t}}
	return t, fb, nil
}

func (d *Device) CreateSurface(width, height, n int) ([]gpu.Texture, gpu.Framebuffer, error) {
	if width <= 0 || height <= 0 || n < 1 {
		return nil, 0, fmt.Errorf("%w: surface %dx%d with %d attachments", gpu.ErrAllocation, width, height, n)
	}
	drainErrors()

	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)

	texs := make([]gpu.Texture, n)
	names := make([]uint32, n)
	for i := range texs {
		gl.GenTextures(1, &names[i])
		gl.BindTexture(gl.TEXTURE_2D, names[i])
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(i), gl.TEXTURE_2D, names[i], 0)
		texs[i] = gpu.Texture(names[i])
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	code := gl.GetError()
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if code != gl.NO_ERROR || status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(int32(n), &names[0])
		return nil, 0, fmt.Errorf("%w: surface %dx%d: gl error 0x%x, framebuffer status 0x%x", gpu.ErrAllocation, width, height, code, status)
	}
	drawBuffers(n)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	for _, t := range texs {
		d.textures[t] = &glTexture{
			target: gl.TEXTURE_2D, w: width, h: height, d: 1,
			comps: 4, internal: gl.RGBA32F, format: gl.RGBA,
		}
	}
	fb := gpu.Framebuffer(fbo)
	d.framebuffers[fb] = &glFramebuffer{attachments: texs}
	return texs, fb, nil
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	if _, ok := d.textures[t]; !ok {
		return
	}
	name := uint32(t)
	gl.DeleteTextures(1, &name)
	delete(d.textures, t)
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	if _, ok := d.framebuffers[fb]; !ok {
		return
	}
	name := uint32(fb)
	gl.DeleteFramebuffers(1, &name)
	delete(d.framebuffers, fb)
}

func (d *Device) Clear(fb gpu.Framebuffer, value float32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	if f, ok := d.framebuffers[fb]; ok {
		drawBuffers(len(f.attachments))
	}
	gl.ClearColor(value, value, value, value)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Device) Upload(t gpu.Texture, data []float32) error {
	tex, ok := d.textures[t]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpu.ErrUnknownHandle, t)
	}
	if want := tex.w * tex.h * tex.d * tex.comps; len(data) != want {
		return fmt.Errorf("%w: got %d floats, texture %d holds %d", gpu.ErrDataSize, len(data), t, want)
	}
	gl.BindTexture(tex.target, uint32(t))
	if tex.target == gl.TEXTURE_3D {
		gl.TexSubImage3D(gl.TEXTURE_3D, 0, 0, 0, 0, int32(tex.w), int32(tex.h), int32(tex.d), tex.format, gl.FLOAT, gl.Ptr(data))
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(tex.w), int32(tex.h), tex.format, gl.FLOAT, gl.Ptr(data))
	}
	gl.BindTexture(tex.target, 0)
	return nil
}

func (d *Device) Download(t gpu.Texture) ([]float32, error) {
	tex, ok := d.textures[t]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", gpu.ErrUnknownHandle, t)
	}
	out := make([]float32, tex.w*tex.h*tex.d*tex.comps)
	gl.BindTexture(tex.target, uint32(t))
	gl.GetTexImage(tex.target, 0, tex.format, gl.FLOAT, gl.Ptr(out))
	gl.BindTexture(tex.target, 0)
	return out, nil
}

func (d *Device) SetViewport(vp gpu.Viewport) {
	gl.Viewport(0, 0, int32(vp.Width), int32(vp.Height))
}

// Close releases every resource the device created.
func (d *Device) Close() error {
	for fb := range d.framebuffers {
		d.DeleteFramebuffer(fb)
	}
	for t := range d.textures {
		d.DeleteTexture(t)
	}
	for h, p := range d.programs {
		gl.DeleteProgram(p.id)
		delete(d.programs, h)
	}
	gl.DeleteVertexArrays(1, &d.quadVAO)
	gl.DeleteVertexArrays(1, &d.cubeVAO)
	if len(d.buffers) > 0 {
		gl.DeleteBuffers(int32(len(d.buffers)), &d.buffers[0])
	}
	return nil
}

func drawBuffers(n int) {
	bufs := make([]uint32, n)
	for i := range bufs {
		bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(n), &bufs[0])
}

// drainErrors clears stale error flags so the next GetError reflects
// only the calls that follow.
func drainErrors() {
	for i := 0; i < 16 && gl.GetError() != gl.NO_ERROR; i++ {
	}
}

var _ gpu.Device = (*Device)(nil)
