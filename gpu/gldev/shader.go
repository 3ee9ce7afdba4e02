package gldev

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/pthm-cable/plume/gpu"
)

type glProgram struct {
	id        uint32
	locations map[string]int32
}

// location returns the cached uniform location, -1 if the uniform is
// not active.
func (p *glProgram) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

func (d *Device) CompileProgram(id gpu.ProgramID, src gpu.Source) (gpu.Program, error) {
	stages := []struct {
		kind uint32
		text string
	}{
		{gl.VERTEX_SHADER, src.Vertex},
		{gl.GEOMETRY_SHADER, src.Geometry},
		{gl.FRAGMENT_SHADER, src.Fragment},
	}

	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()
	for _, st := range stages {
		if st.text == "" {
			continue
		}
		s, err := compileShader(st.text, st.kind)
		if err != nil {
			return gpu.Program{}, fmt.Errorf("%w: %s: %w", gpu.ErrShaderLink, id, err)
		}
		shaders = append(shaders, s)
	}

	prog, err := linkProgram(shaders)
	if err != nil {
		return gpu.Program{}, fmt.Errorf("%w: %s: %w", gpu.ErrShaderLink, id, err)
	}
	d.programs[prog] = &glProgram{id: prog, locations: make(map[string]int32)}
	d.logger.Debug("program linked", "program", id.String(), "handle", prog)
	return gpu.Program{ID: id, Handle: prog}, nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	if prog, ok := d.programs[p.Handle]; ok {
		gl.DeleteProgram(prog.id)
		delete(d.programs, p.Handle)
	}
}

// compileShader compiles a single shader.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(log, "\x00"))
	}

	return shader, nil
}

// linkProgram links shaders into a program. Attribute 0 is bound to
// "position", which every vertex stage declares.
func linkProgram(shaders []uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.BindAttribLocation(program, 0, gl.Str("position\x00"))
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link failed: %s", strings.TrimRight(log, "\x00"))
	}

	for _, s := range shaders {
		gl.DetachShader(program, s)
	}
	return program, nil
}
