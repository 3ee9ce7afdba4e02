package gldev

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
)

// createGeometry uploads the full-viewport quad and the domain cube.
func (d *Device) createGeometry() {
	var bufs [3]uint32
	gl.GenBuffers(3, &bufs[0])
	d.buffers = bufs[:]

	gl.GenVertexArrays(1, &d.quadVAO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, bufs[0])
	gl.BufferData(gl.ARRAY_BUFFER, len(gpu.QuadVertices)*2*4, gl.Ptr(&gpu.QuadVertices[0][0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*4, 0)

	gl.GenVertexArrays(1, &d.cubeVAO)
	gl.BindVertexArray(d.cubeVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, bufs[1])
	gl.BufferData(gl.ARRAY_BUFFER, len(gpu.CubeVertices)*3*4, gl.Ptr(&gpu.CubeVertices[0][0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, bufs[2])
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(gpu.CubeIndices)*2, gl.Ptr(&gpu.CubeIndices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Draws returns the number of passes drawn since creation.
func (d *Device) Draws() int {
	return d.draws
}

// Finish blocks until every submitted pass has executed.
func (d *Device) Finish() {
	gl.Finish()
}

// Draw binds the pass's program, target, blend, cull, uniforms and
// samplers, then issues the draw call for its geometry.
func (d *Device) Draw(p gpu.Pass) {
	prog, ok := d.programs[p.Program.Handle]
	if !ok {
		panic(fmt.Sprintf("gldev: draw with unknown program %s", p.Program.ID))
	}
	gl.UseProgram(prog.id)
	d.draws++

	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(p.Target))
	layers := int32(1)
	if f, ok := d.framebuffers[p.Target]; ok {
		drawBuffers(len(f.attachments))
		if tex := d.textures[f.attachments[0]]; tex != nil {
			layers = int32(tex.d)
		}
	}

	setBlend(p.Blend)
	if p.Cull {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	gl.Disable(gl.DEPTH_TEST)

	for name, v := range p.Uniforms {
		setUniform(prog.location(name), v)
	}
	for i, s := range p.Samplers {
		tex, ok := d.textures[s.Texture]
		if !ok {
			panic(fmt.Sprintf("gldev: sampler %q bound to unknown texture %d", s.Name, s.Texture))
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(tex.target, uint32(s.Texture))
		if loc := prog.location(s.Name); loc >= 0 {
			gl.Uniform1i(loc, int32(i))
		}
	}

	switch p.Geometry {
	case gpu.GeometrySlices:
		gl.BindVertexArray(d.quadVAO)
		gl.DrawArraysInstanced(gl.TRIANGLE_STRIP, 0, 4, layers)
	case gpu.GeometryQuad:
		gl.BindVertexArray(d.quadVAO)
		gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	case gpu.GeometryCube:
		gl.BindVertexArray(d.cubeVAO)
		gl.DrawElements(gl.TRIANGLES, int32(len(gpu.CubeIndices)), gl.UNSIGNED_SHORT, nil)
	}

	for i := range p.Samplers {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_3D, 0)
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

func setBlend(b gpu.Blend) {
	switch b {
	case gpu.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	case gpu.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	default:
		gl.Disable(gl.BLEND)
	}
}

func setUniform(loc int32, v any) {
	if loc < 0 {
		return
	}
	switch v := v.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case int32:
		gl.Uniform1i(loc, v)
	case mgl32.Vec2:
		gl.Uniform2f(loc, v[0], v[1])
	case mgl32.Vec3:
		gl.Uniform3f(loc, v[0], v[1], v[2])
	case mgl32.Vec4:
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case mgl32.Mat4:
		gl.UniformMatrix4fv(loc, 1, false, &v[0])
	default:
		panic(fmt.Sprintf("gldev: unsupported uniform type %T", v))
	}
}
