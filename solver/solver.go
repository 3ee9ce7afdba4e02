// Package solver advances the smoke simulation one timestep at a time as
// a fixed sequence of device passes over a field.State.
package solver

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/telemetry"
)

// PhaseRecorder receives the name of each stage as it begins.
// *telemetry.PerfCollector implements it.
type PhaseRecorder interface {
	StartPhase(phase string)
}

type noPhases struct{}

func (noPhases) StartPhase(string) {}

// Solver owns the simulation state and runs the step pipeline on it.
type Solver struct {
	dev      gpu.Device
	lib      *gpu.ShaderLibrary
	params   Params
	state    *field.State
	emitters *Emitters
	scratch  *field.Volume // diffusion right-hand side, nil when inviscid
	phases   PhaseRecorder
	logger   *slog.Logger

	steps int
}

// New allocates the simulation state for params.Size. The library must
// hold every solver program.
func New(dev gpu.Device, lib *gpu.ShaderLibrary, params Params, logger *slog.Logger) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("solver params: %w", err)
	}
	state, err := field.NewState(dev, params.Size)
	if err != nil {
		return nil, fmt.Errorf("allocating simulation state: %w", err)
	}
	var scratch *field.Volume
	if params.Viscosity > 0 {
		scratch, err = field.NewVolume(dev, params.Size, 3)
		if err != nil {
			state.Release()
			return nil, fmt.Errorf("allocating diffusion scratch: %w", err)
		}
	}
	s := &Solver{
		dev:      dev,
		lib:      lib,
		params:   params,
		state:    state,
		emitters: NewEmitters(params.Impulses),
		scratch:  scratch,
		phases:   noPhases{},
		logger:   gpu.LoggerOrDiscard(logger),
	}
	s.state.Reset(params.AmbientTemperature)
	s.logger.Info("solver created",
		"grid", params.Size.String(),
		"jacobi_iterations", params.JacobiIterations,
		"emitters", s.emitters.Len(),
	)
	return s, nil
}

// SetPhaseRecorder installs r to observe stage timing. nil disables it.
func (s *Solver) SetPhaseRecorder(r PhaseRecorder) {
	if r == nil {
		r = noPhases{}
	}
	s.phases = r
}

// Params returns the solver's parameters.
func (s *Solver) Params() Params { return s.params }

// State returns the field pairs the solver advances.
func (s *Solver) State() *field.State { return s.state }

// Emitters returns the impulse sources applied each step.
func (s *Solver) Emitters() *Emitters { return s.emitters }

// Steps is the number of steps taken since creation or the last Restart.
func (s *Solver) Steps() int { return s.steps }

// GridSize is the simulation grid's extent in cells.
func (s *Solver) GridSize() gpu.Size { return s.params.Size }

// Density is the current density field.
func (s *Solver) Density() *field.Volume { return s.state.Density.Current() }

// Velocity is the current velocity field.
func (s *Solver) Velocity() *field.Volume { return s.state.Velocity.Current() }

// Temperature is the current temperature field.
func (s *Solver) Temperature() *field.Volume { return s.state.Temperature.Current() }

// Step advances the simulation by one timestep. Device state is restored
// before returning.
func (s *Solver) Step() {
	saved := s.dev.State()
	defer s.dev.RestoreState(saved)

	s.phases.StartPhase(telemetry.PhaseAdvect)
	s.Advect()
	s.phases.StartPhase(telemetry.PhaseBuoyancy)
	s.Buoyancy()
	s.phases.StartPhase(telemetry.PhaseImpulse)
	s.Impulses()
	s.phases.StartPhase(telemetry.PhaseDiffuse)
	s.Diffuse()
	s.phases.StartPhase(telemetry.PhaseProject)
	s.Project()
	s.steps++
}

// Restart zeroes every field and sets temperature back to ambient.
func (s *Solver) Restart() {
	s.state.Reset(s.params.AmbientTemperature)
	s.steps = 0
	s.logger.Info("simulation restarted")
}

// Release frees the simulation state.
func (s *Solver) Release() {
	s.state.Release()
	if s.scratch != nil {
		s.scratch.Release()
	}
}

// Advect transports velocity by itself, then temperature and density
// through the advected velocity.
func (s *Solver) Advect() {
	st := s.state
	s.advect(st.Velocity, st.Velocity.Current(), s.params.VelocityDissipation)
	st.Velocity.Swap()
	s.advect(st.Temperature, st.Velocity.Current(), s.params.TemperatureDissipation)
	st.Temperature.Swap()
	s.advect(st.Density, st.Velocity.Current(), s.params.DensityDissipation)
	st.Density.Swap()
}

func (s *Solver) advect(q *field.Double, velocity *field.Volume, dissipation float32) {
	s.slices(gpu.ProgAdvect, q.Previous(), gpu.Uniforms{
		"inverseSize": inverseSize(s.params.Size),
		"dt":          s.params.Dt,
		"rdx":         1 / s.params.CellSize,
		"dissipation": dissipation,
	},
		gpu.Sampler{Name: "velocity", Texture: velocity.Texture()},
		gpu.Sampler{Name: "source", Texture: q.Current().Texture()},
	)
}

// Buoyancy lifts hot cells and sinks dense ones along Params.Direction.
func (s *Solver) Buoyancy() {
	st := s.state
	s.slices(gpu.ProgBuoyancy, st.Velocity.Previous(), gpu.Uniforms{
		"dt":                 s.params.Dt,
		"ambientTemperature": s.params.AmbientTemperature,
		"sigma":              s.params.Buoyancy,
		"kappa":              s.params.Weight,
		"dir":                s.params.Direction,
	},
		gpu.Sampler{Name: "velocity", Texture: st.Velocity.Current().Texture()},
		gpu.Sampler{Name: "temperature", Texture: st.Temperature.Current().Texture()},
		gpu.Sampler{Name: "density", Texture: st.Density.Current().Texture()},
	)
	st.Velocity.Swap()
}

// Impulses blends every emitter's temperature and density additively
// into the current fields. Nothing is read, so no swap is needed.
func (s *Solver) Impulses() {
	st := s.state
	s.emitters.Each(func(imp Impulse) {
		s.splat(st.Temperature.Current(), imp, imp.Temperature)
		s.splat(st.Density.Current(), imp, imp.Density)
	})
}

func (s *Solver) splat(dst *field.Volume, imp Impulse, fill float32) {
	if fill == 0 {
		return
	}
	s.dev.SetViewport(s.params.Size.Viewport())
	s.dev.Draw(gpu.Pass{
		Program:  s.lib.Program(gpu.ProgImpulse),
		Target:   dst.Framebuffer(),
		Geometry: gpu.GeometrySlices,
		Blend:    gpu.BlendAdditive,
		Uniforms: gpu.Uniforms{
			"point":  imp.Position,
			"radius": imp.Radius,
			"fill":   fill,
		},
	})
}

// Diffuse relaxes velocity toward its viscous solution. It does nothing
// when viscosity is zero.
func (s *Solver) Diffuse() {
	if s.params.Viscosity <= 0 {
		return
	}
	dx := s.params.CellSize
	alpha := dx * dx / (s.params.Viscosity * s.params.Dt)
	v := s.state.Velocity
	// The right-hand side stays fixed while velocity ping-pongs.
	s.copyVolume(s.scratch, v.Current())
	for range s.params.JacobiIterations {
		s.jacobi(v, s.scratch, alpha, 1/(6+alpha))
		v.Swap()
	}
}

// copyVolume copies src into dst as an advection with zero timestep,
// which samples every texel at its own center. Every uniform is set
// because GL programs keep the values of the previous advect pass.
func (s *Solver) copyVolume(dst, src *field.Volume) {
	s.slices(gpu.ProgAdvect, dst, gpu.Uniforms{
		"inverseSize": inverseSize(src.Size()),
		"dt":          float32(0),
		"rdx":         1 / s.params.CellSize,
		"dissipation": float32(1),
	},
		gpu.Sampler{Name: "velocity", Texture: src.Texture()},
		gpu.Sampler{Name: "source", Texture: src.Texture()},
	)
}

// Project makes velocity divergence free: divergence, pressure solve,
// no-slip walls, gradient subtraction and walls again.
func (s *Solver) Project() {
	st := s.state
	s.Divergence()
	s.SolvePressure()
	s.Boundary(st.Velocity, -1)
	st.Velocity.Swap()
	s.SubtractGradient()
	s.Boundary(st.Velocity, -1)
	st.Velocity.Swap()
}

// Divergence computes the divergence of the current velocity.
func (s *Solver) Divergence() {
	st := s.state
	s.slices(gpu.ProgDivergence, st.Divergence, gpu.Uniforms{
		"halfrdx": 0.5 / s.params.CellSize,
	},
		gpu.Sampler{Name: "velocity", Texture: st.Velocity.Current().Texture()},
	)
}

// SolvePressure clears pressure and runs the Jacobi iterations, fixing
// the boundary after each one.
func (s *Solver) SolvePressure() {
	st := s.state
	dx := s.params.CellSize
	st.Pressure.Current().Clear(0)
	for range s.params.JacobiIterations {
		s.jacobi(st.Pressure, st.Divergence, -dx*dx, 1.0/6)
		st.Pressure.Swap()
		s.Boundary(st.Pressure, 1)
		st.Pressure.Swap()
	}
}

func (s *Solver) jacobi(x *field.Double, b *field.Volume, alpha, rBeta float32) {
	s.slices(gpu.ProgJacobi, x.Previous(), gpu.Uniforms{
		"alpha": alpha,
		"rBeta": rBeta,
	},
		gpu.Sampler{Name: "x", Texture: x.Current().Texture()},
		gpu.Sampler{Name: "b", Texture: b.Texture()},
	)
}

// SubtractGradient removes the pressure gradient from velocity.
func (s *Solver) SubtractGradient() {
	st := s.state
	s.slices(gpu.ProgSubtractGradient, st.Velocity.Previous(), gpu.Uniforms{
		"gradientScale": s.params.GradientScale,
	},
		gpu.Sampler{Name: "velocity", Texture: st.Velocity.Current().Texture()},
		gpu.Sampler{Name: "pressure", Texture: st.Pressure.Current().Texture()},
	)
	st.Velocity.Swap()
}

// Boundary writes q's current values into its previous buffer with the
// boundary shell set to scale times the inward neighbour. The caller
// swaps.
func (s *Solver) Boundary(q *field.Double, scale float32) {
	s.slices(gpu.ProgBoundary, q.Previous(), gpu.Uniforms{
		"scale": scale,
	},
		gpu.Sampler{Name: "source", Texture: q.Current().Texture()},
	)
}

// slices draws program id over every z-slice of dst. Stage methods leave
// the grid viewport set; Step restores the caller's state.
func (s *Solver) slices(id gpu.ProgramID, dst *field.Volume, u gpu.Uniforms, samplers ...gpu.Sampler) {
	s.dev.SetViewport(s.params.Size.Viewport())
	s.dev.Draw(gpu.Pass{
		Program:  s.lib.Program(id),
		Target:   dst.Framebuffer(),
		Geometry: gpu.GeometrySlices,
		Uniforms: u,
		Samplers: samplers,
	})
}

func inverseSize(size gpu.Size) mgl32.Vec3 {
	return mgl32.Vec3{1 / float32(size.W), 1 / float32(size.H), 1 / float32(size.D)}
}
