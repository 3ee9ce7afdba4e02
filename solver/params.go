package solver

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/gpu"
)

// Params are the solver coefficients. They are fixed between restarts.
type Params struct {
	Size gpu.Size

	Dt                     float32
	VelocityDissipation    float32
	DensityDissipation     float32
	TemperatureDissipation float32

	AmbientTemperature float32
	Buoyancy           float32 // sigma
	Weight             float32 // kappa
	Direction          mgl32.Vec3

	Viscosity        float32
	JacobiIterations int
	CellSize         float32 // dx
	GradientScale    float32

	Impulses []Impulse
}

// Impulse injects temperature and density within Radius cells of
// Position each step.
type Impulse struct {
	Position    mgl32.Vec3
	Radius      float32
	Temperature float32
	Density     float32
}

// DefaultImpulse is the single source at the bottom center of a grid.
func DefaultImpulse(size gpu.Size) Impulse {
	r := float32(size.W) * 0.15
	return Impulse{
		Position:    mgl32.Vec3{float32(size.W) / 2, r / 2, float32(size.D) / 2},
		Radius:      r,
		Temperature: 10,
		Density:     1,
	}
}

// DefaultParams returns the smoke defaults for a grid of the given size.
func DefaultParams(size gpu.Size) Params {
	return Params{
		Size:                   size,
		Dt:                     0.25,
		VelocityDissipation:    0.99,
		DensityDissipation:     0.99,
		TemperatureDissipation: 0.99,
		Buoyancy:               1,
		Weight:                 0.05,
		Direction:              mgl32.Vec3{0, 1, 0},
		JacobiIterations:       30,
		CellSize:               1,
		GradientScale:          0.5,
		Impulses:               []Impulse{DefaultImpulse(size)},
	}
}

// ParamsFromConfig builds Params from a loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	s := cfg.Solver
	p := Params{
		Size:                   gpu.Size{W: cfg.Grid.Width, H: cfg.Grid.Height, D: cfg.Grid.Depth},
		Dt:                     cfg.Derived.DT32,
		VelocityDissipation:    float32(s.VelocityDissipation),
		DensityDissipation:     float32(s.DensityDissipation),
		TemperatureDissipation: float32(s.TemperatureDissipation),
		AmbientTemperature:     float32(s.AmbientTemperature),
		Buoyancy:               float32(s.Buoyancy),
		Weight:                 float32(s.Weight),
		Direction:              vec3(s.Direction),
		Viscosity:              float32(s.Viscosity),
		JacobiIterations:       s.JacobiIterations,
		CellSize:               float32(s.CellSize),
		GradientScale:          cfg.Derived.GradientScale,
	}
	for _, e := range cfg.Emitters {
		p.Impulses = append(p.Impulses, Impulse{
			Position:    vec3(*e.Position),
			Radius:      float32(e.Radius),
			Temperature: float32(e.Temperature),
			Density:     float32(e.Density),
		})
	}
	return p
}

// Validate reports parameters the passes cannot run with.
func (p Params) Validate() error {
	switch {
	case !p.Size.Valid():
		return fmt.Errorf("invalid grid size %s", p.Size)
	case p.CellSize <= 0:
		return fmt.Errorf("cell size must be positive, got %v", p.CellSize)
	case p.JacobiIterations < 0:
		return fmt.Errorf("jacobi iterations must not be negative, got %d", p.JacobiIterations)
	case p.Viscosity < 0:
		return fmt.Errorf("viscosity must not be negative, got %v", p.Viscosity)
	case p.Viscosity > 0 && p.Dt <= 0:
		return fmt.Errorf("diffusion needs a positive dt, got %v", p.Dt)
	}
	for i, imp := range p.Impulses {
		if imp.Radius <= 0 {
			return fmt.Errorf("impulse %d: radius must be positive, got %v", i, imp.Radius)
		}
	}
	return nil
}

func vec3(v [3]float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}
