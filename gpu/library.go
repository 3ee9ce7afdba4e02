package gpu

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
)

//go:embed shaders/*.vert shaders/*.geom shaders/*.frag
var shaderFS embed.FS

// stages lists the shader files of each program.
var stages = [numPrograms][3]string{
	ProgAdvect:              {"slice.vert", "layer.geom", "advect.frag"},
	ProgBuoyancy:            {"slice.vert", "layer.geom", "buoyancy.frag"},
	ProgImpulse:             {"slice.vert", "layer.geom", "impulse.frag"},
	ProgJacobi:              {"slice.vert", "layer.geom", "jacobi.frag"},
	ProgDivergence:          {"slice.vert", "layer.geom", "divergence.frag"},
	ProgSubtractGradient:    {"slice.vert", "layer.geom", "gradient.frag"},
	ProgBoundary:            {"slice.vert", "layer.geom", "boundary.frag"},
	ProgRayCubeIntersection: {"cube.vert", "", "intersect.frag"},
	ProgRaycast:             {"quad.vert", "", "raycast.frag"},
}

// SourceFor returns the embedded GLSL of a program.
func SourceFor(id ProgramID) (Source, error) {
	if id < 0 || id >= numPrograms {
		return Source{}, fmt.Errorf("no source for %s", id)
	}
	files := stages[id]
	var texts [3]string
	for i, name := range files {
		if name == "" {
			continue
		}
		data, err := shaderFS.ReadFile("shaders/" + name)
		if err != nil {
			return Source{}, fmt.Errorf("reading %s: %w", name, err)
		}
		texts[i] = string(data)
	}
	return Source{Vertex: texts[0], Geometry: texts[1], Fragment: texts[2]}, nil
}

// ShaderLibrary owns the compiled programs of the pipeline.
type ShaderLibrary struct {
	dev      Device
	programs map[ProgramID]Program
}

// LoadLibrary compiles every program on dev. If any program fails, the
// ones that linked are released and the joined failures are returned;
// each wraps ErrShaderLink.
func LoadLibrary(dev Device, logger *slog.Logger) (*ShaderLibrary, error) {
	return loadLibrary(dev, logger, SourceFor)
}

func loadLibrary(dev Device, logger *slog.Logger, source func(ProgramID) (Source, error)) (*ShaderLibrary, error) {
	logger = LoggerOrDiscard(logger)
	lib := &ShaderLibrary{
		dev:      dev,
		programs: make(map[ProgramID]Program, numPrograms),
	}

	var errs []error
	for _, id := range ProgramIDs() {
		src, err := source(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrShaderLink, id, err))
			continue
		}
		p, err := dev.CompileProgram(id, src)
		if err != nil {
			logger.Error("shader program failed", "program", id.String(), "error", err)
			if !errors.Is(err, ErrShaderLink) {
				err = fmt.Errorf("%w: %s: %w", ErrShaderLink, id, err)
			}
			errs = append(errs, err)
			continue
		}
		lib.programs[id] = p
	}

	if len(errs) > 0 {
		lib.Release()
		return nil, errors.Join(errs...)
	}
	logger.Debug("shader library loaded", "device", dev.Name(), "programs", len(lib.programs))
	return lib, nil
}

// Program returns the linked program for id. It panics if the library
// does not hold id, which cannot happen for a library returned by
// LoadLibrary.
func (l *ShaderLibrary) Program(id ProgramID) Program {
	p, ok := l.programs[id]
	if !ok {
		panic(fmt.Sprintf("gpu: program %s not loaded", id))
	}
	return p
}

// Release deletes every program.
func (l *ShaderLibrary) Release() {
	for id, p := range l.programs {
		l.dev.DeleteProgram(p)
		delete(l.programs, id)
	}
}
