package gldev

import (
	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/pthm-cable/plume/gpu"
)

// nativeState is the raw GL state a host renderer (raylib) depends on.
type nativeState struct {
	viewport      [4]int32
	blend         bool
	blendSrcRGB   int32
	blendDstRGB   int32
	blendSrcAlpha int32
	blendDstAlpha int32
	cull          bool
	depthTest     bool
	program       int32
	framebuffer   int32
	vertexArray   int32
	activeTexture int32
}

func (d *Device) State() gpu.State {
	var n nativeState
	gl.GetIntegerv(gl.VIEWPORT, &n.viewport[0])
	n.blend = gl.IsEnabled(gl.BLEND)
	gl.GetIntegerv(gl.BLEND_SRC_RGB, &n.blendSrcRGB)
	gl.GetIntegerv(gl.BLEND_DST_RGB, &n.blendDstRGB)
	gl.GetIntegerv(gl.BLEND_SRC_ALPHA, &n.blendSrcAlpha)
	gl.GetIntegerv(gl.BLEND_DST_ALPHA, &n.blendDstAlpha)
	n.cull = gl.IsEnabled(gl.CULL_FACE)
	n.depthTest = gl.IsEnabled(gl.DEPTH_TEST)
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &n.program)
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &n.framebuffer)
	gl.GetIntegerv(gl.VERTEX_ARRAY_BINDING, &n.vertexArray)
	gl.GetIntegerv(gl.ACTIVE_TEXTURE, &n.activeTexture)

	return gpu.State{
		Viewport: gpu.Viewport{Width: int(n.viewport[2]), Height: int(n.viewport[3])},
		Blend:    blendMode(n),
		Cull:     n.cull,
		Native:   n,
	}
}

func (d *Device) RestoreState(s gpu.State) {
	n, ok := s.Native.(nativeState)
	if !ok {
		d.SetViewport(s.Viewport)
		setBlend(s.Blend)
		setCap(gl.CULL_FACE, s.Cull)
		return
	}
	gl.Viewport(n.viewport[0], n.viewport[1], n.viewport[2], n.viewport[3])
	setCap(gl.BLEND, n.blend)
	gl.BlendFuncSeparate(uint32(n.blendSrcRGB), uint32(n.blendDstRGB), uint32(n.blendSrcAlpha), uint32(n.blendDstAlpha))
	setCap(gl.CULL_FACE, n.cull)
	setCap(gl.DEPTH_TEST, n.depthTest)
	gl.UseProgram(uint32(n.program))
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(n.framebuffer))
	gl.BindVertexArray(uint32(n.vertexArray))
	gl.ActiveTexture(uint32(n.activeTexture))
}

func blendMode(n nativeState) gpu.Blend {
	switch {
	case !n.blend:
		return gpu.BlendNone
	case n.blendSrcRGB == gl.ONE && n.blendDstRGB == gl.ONE:
		return gpu.BlendAdditive
	default:
		return gpu.BlendAlpha
	}
}

func setCap(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}
