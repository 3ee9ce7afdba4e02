// Package renderer ties the fluid solver to the volume raycaster: each
// Step advances the simulation and draws the resulting density onto the
// display target.
package renderer

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/raycast"
	"github.com/pthm-cable/plume/solver"
	"github.com/pthm-cable/plume/telemetry"
)

// Options configure a Renderer.
type Options struct {
	Solver   solver.Params
	Raycast  raycast.Params
	Viewport gpu.Viewport
}

// OptionsFromConfig builds Options from a loaded config for the given
// initial viewport.
func OptionsFromConfig(cfg *config.Config, vp gpu.Viewport) Options {
	return Options{
		Solver:   solver.ParamsFromConfig(cfg),
		Raycast:  raycast.ParamsFromConfig(cfg),
		Viewport: vp,
	}
}

// Renderer owns the shader library, the solver and both raycast passes.
type Renderer struct {
	dev       gpu.Device
	lib       *gpu.ShaderLibrary
	solver    *solver.Solver
	surface   *raycast.IntersectionSurface
	raycaster *raycast.Raycaster
	phases    solver.PhaseRecorder
	logger    *slog.Logger

	// volume replaces the simulated density when set; the solver is idle.
	volume *field.Volume
	paused bool
}

// New compiles every program, then allocates the simulation state and
// the intersection surface. Nothing is kept if any step fails. Fire is
// shaded against the solver's ambient temperature.
func New(dev gpu.Device, opts Options, logger *slog.Logger) (*Renderer, error) {
	logger = gpu.LoggerOrDiscard(logger)
	opts.Raycast.AmbientTemperature = opts.Solver.AmbientTemperature
	lib, err := gpu.LoadLibrary(dev, logger)
	if err != nil {
		return nil, fmt.Errorf("loading shader library: %w", err)
	}
	s, err := solver.New(dev, lib, opts.Solver, logger)
	if err != nil {
		lib.Release()
		return nil, err
	}
	surface, err := raycast.NewIntersectionSurface(dev, lib, opts.Viewport)
	if err != nil {
		s.Release()
		lib.Release()
		return nil, err
	}
	logger.Info("renderer created",
		"device", dev.Name(),
		"viewport", fmt.Sprintf("%dx%d", opts.Viewport.Width, opts.Viewport.Height),
		"material", opts.Raycast.Material.String(),
	)
	return &Renderer{
		dev:       dev,
		lib:       lib,
		solver:    s,
		surface:   surface,
		raycaster: raycast.NewRaycaster(dev, lib, opts.Raycast),
		logger:    logger,
	}, nil
}

// SetPhaseRecorder installs r to observe the solver stages and both
// raycast passes. nil disables it. The caller brackets each Step with its
// own step timing.
func (r *Renderer) SetPhaseRecorder(p solver.PhaseRecorder) {
	r.phases = p
	r.solver.SetPhaseRecorder(p)
}

// Solver returns the simulation driven by Step.
func (r *Renderer) Solver() *solver.Solver { return r.solver }

// Surface returns the entry and exit surface of the last Step.
func (r *Renderer) Surface() *raycast.IntersectionSurface { return r.surface }

// Raycaster returns the volume raycaster.
func (r *Renderer) Raycaster() *raycast.Raycaster { return r.raycaster }

// Paused reports whether Step skips the simulation.
func (r *Renderer) Paused() bool { return r.paused }

// VolumeOnly reports whether a loaded volume replaces the simulation.
func (r *Renderer) VolumeOnly() bool { return r.volume != nil }

// Material is the raycaster's current shading.
func (r *Renderer) Material() raycast.Material { return r.raycaster.Params().Material }

// SetMaterial switches between smoke, fire and both.
func (r *Renderer) SetMaterial(m raycast.Material) { r.raycaster.SetMaterial(m) }

// SetPaused stops or resumes the simulation. Rendering continues.
func (r *Renderer) SetPaused(paused bool) { r.paused = paused }

// Steps is the solver's step count.
func (r *Renderer) Steps() int { return r.solver.Steps() }

// Step advances the simulation once, unless paused or showing external
// volume data, then renders it for the given camera and viewport. The
// intersection surface follows viewport changes. Device state is
// restored before returning.
func (r *Renderer) Step(modelView, projection mgl32.Mat4, vp gpu.Viewport) error {
	saved := r.dev.State()
	defer r.dev.RestoreState(saved)

	if !r.paused && r.volume == nil {
		r.solver.Step()
	}

	r.startPhase(telemetry.PhaseIntersect)
	if err := r.Resize(vp); err != nil {
		return err
	}
	r.surface.Compute(modelView, projection)

	r.startPhase(telemetry.PhaseRaycast)
	r.raycaster.Render(r.surface, r.density(), r.solver.Temperature())
	return nil
}

// Simulate advances the simulation once without rendering, unless
// paused or showing external volume data.
func (r *Renderer) Simulate() {
	if r.paused || r.volume != nil {
		return
	}
	saved := r.dev.State()
	defer r.dev.RestoreState(saved)
	r.solver.Step()
}

func (r *Renderer) startPhase(phase string) {
	if r.phases != nil {
		r.phases.StartPhase(phase)
	}
}

func (r *Renderer) density() *field.Volume {
	if r.volume != nil {
		return r.volume
	}
	return r.solver.Density()
}

// Restart zeroes every field and sets temperature back to ambient.
func (r *Renderer) Restart() {
	r.solver.Restart()
}

// Resize reallocates the intersection surface for a new viewport. The
// simulation grid is unaffected.
func (r *Renderer) Resize(vp gpu.Viewport) error {
	if vp == r.surface.Viewport() {
		return nil
	}
	if err := r.surface.Resize(vp); err != nil {
		return fmt.Errorf("resizing intersection surface: %w", err)
	}
	r.logger.Info("viewport resized", "width", vp.Width, "height", vp.Height)
	return nil
}

// SetVolumeData shows a host-supplied density volume, x-fastest with one
// float per cell, instead of the simulation. The solver stops stepping.
func (r *Renderer) SetVolumeData(size gpu.Size, data []float32) error {
	if err := field.CheckData(size, data); err != nil {
		return err
	}
	if r.volume == nil || r.volume.Size() != size {
		v, err := field.NewVolume(r.dev, size, 1)
		if err != nil {
			return fmt.Errorf("allocating volume data: %w", err)
		}
		if r.volume != nil {
			r.volume.Release()
		}
		r.volume = v
	}
	if err := r.volume.Write(data); err != nil {
		return err
	}
	r.logger.Info("volume data set", "size", size.String())
	return nil
}

// ClearVolumeData returns to showing the simulation.
func (r *Renderer) ClearVolumeData() {
	if r.volume == nil {
		return
	}
	r.volume.Release()
	r.volume = nil
	r.logger.Info("volume data cleared")
}

// FieldData reads the simulation fields back to the host. Divergence is
// recomputed from the current velocity, so it measures what projection
// left behind.
func (r *Renderer) FieldData() (telemetry.FieldData, error) {
	saved := r.dev.State()
	defer r.dev.RestoreState(saved)

	r.solver.Divergence()
	st := r.solver.State()
	size := st.Size()
	f := telemetry.FieldData{W: size.W, H: size.H, D: size.D}
	for _, read := range []struct {
		dst *[]float32
		src *field.Volume
	}{
		{&f.Velocity, st.Velocity.Current()},
		{&f.Density, st.Density.Current()},
		{&f.Temperature, st.Temperature.Current()},
		{&f.Divergence, st.Divergence},
	} {
		data, err := read.src.Read()
		if err != nil {
			return telemetry.FieldData{}, fmt.Errorf("reading fields: %w", err)
		}
		*read.dst = data
	}
	return f, nil
}

// Release frees every device resource the renderer owns.
func (r *Renderer) Release() {
	r.ClearVolumeData()
	r.surface.Release()
	r.solver.Release()
	r.lib.Release()
}
