package gpu

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ProgramID names one of the programs the pipeline uses.
type ProgramID int

const (
	ProgAdvect ProgramID = iota
	ProgBuoyancy
	ProgImpulse
	ProgJacobi
	ProgDivergence
	ProgSubtractGradient
	ProgBoundary
	ProgRayCubeIntersection
	ProgRaycast

	numPrograms
)

var programNames = [numPrograms]string{
	ProgAdvect:              "advect",
	ProgBuoyancy:            "buoyancy",
	ProgImpulse:             "impulse",
	ProgJacobi:              "jacobi",
	ProgDivergence:          "divergence",
	ProgSubtractGradient:    "subtract_gradient",
	ProgBoundary:            "boundary",
	ProgRayCubeIntersection: "ray_cube_intersection",
	ProgRaycast:             "raycast",
}

func (id ProgramID) String() string {
	if id < 0 || id >= numPrograms {
		return fmt.Sprintf("program(%d)", int(id))
	}
	return programNames[id]
}

// ProgramIDs returns every program the pipeline needs, in load order.
func ProgramIDs() []ProgramID {
	ids := make([]ProgramID, numPrograms)
	for i := range ids {
		ids[i] = ProgramID(i)
	}
	return ids
}

// Program is a compiled, linked program on a device.
type Program struct {
	ID     ProgramID
	Handle uint32
}

// Valid reports whether p refers to a linked program.
func (p Program) Valid() bool {
	return p.Handle != 0
}

// Source is the GLSL text of a program. Geometry may be empty.
type Source struct {
	Vertex   string
	Geometry string
	Fragment string
}

var uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+(\w+)\s+(\w+)\s*;`)

// Declared lists the uniforms of every stage, split into plain values
// and samplers, in declaration order.
func (s Source) Declared() (values, samplers []string) {
	for _, stage := range []string{s.Vertex, s.Geometry, s.Fragment} {
		for _, m := range uniformDecl.FindAllStringSubmatch(stage, -1) {
			if strings.HasPrefix(m[1], "sampler") {
				samplers = append(samplers, m[2])
			} else {
				values = append(values, m[2])
			}
		}
	}
	return values, samplers
}

// MissingInputs returns the uniforms and samplers p's program declares
// but p does not set.
func MissingInputs(p Pass) ([]string, error) {
	src, err := SourceFor(p.Program.ID)
	if err != nil {
		return nil, err
	}
	values, samplers := src.Declared()
	var missing []string
	for _, name := range values {
		if _, ok := p.Uniforms[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, name := range samplers {
		if !slices.ContainsFunc(p.Samplers, func(smp Sampler) bool { return smp.Name == name }) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
