package raycast

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/gpu"
)

// Material selects how the raycast shades a sample.
type Material int32

const (
	MaterialSmoke Material = config.MaterialSmoke // light-attenuated grey scattering
	MaterialFire  Material = config.MaterialFire  // emission ramped by temperature
	MaterialBoth  Material = config.MaterialBoth
)

func (m Material) String() string {
	if m >= 0 && int(m) < len(config.MaterialNames) {
		return config.MaterialNames[m]
	}
	return fmt.Sprintf("material(%d)", int32(m))
}

// Next cycles smoke, fire, both.
func (m Material) Next() Material {
	return (m + 1) % Material(len(config.MaterialNames))
}

// Params shape the march. Lengths are in domain units, where the cube
// spans 2.
type Params struct {
	Material        Material
	StepSize        float32
	Absorption      float32
	AlphaCutoff     float32
	LightSteps      int32
	LightStepSize   float32
	LightDir        mgl32.Vec3 // unit vector toward the light
	AmbientLight    float32
	SmokeColor      mgl32.Vec3
	FireTemperature float32 // degrees above ambient at full heat

	// AmbientTemperature is the solver's ambient. Fire only shows where
	// smoke is hotter than this.
	AmbientTemperature float32
}

// DefaultParams returns smoke shading with a light above and behind.
func DefaultParams() Params {
	return Params{
		Material:        MaterialSmoke,
		StepSize:        0.02,
		Absorption:      10,
		AlphaCutoff:     0.99,
		LightSteps:      16,
		LightStepSize:   0.05,
		LightDir:        mgl32.Vec3{0.4, 1, 0.6}.Normalize(),
		AmbientLight:    0.15,
		SmokeColor:      mgl32.Vec3{0.9, 0.9, 0.95},
		FireTemperature: 10,
	}
}

// ParamsFromConfig builds Params from a loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	r := cfg.Raycast
	c := r.SmokeColor
	return Params{
		Material:        Material(cfg.Derived.Material),
		StepSize:        float32(r.StepSize),
		Absorption:      float32(r.Absorption),
		AlphaCutoff:     float32(r.AlphaCutoff),
		LightSteps:      int32(r.LightSteps),
		LightStepSize:   float32(r.LightStepSize),
		LightDir:        mgl32.Vec3(cfg.Derived.LightDir),
		AmbientLight:    float32(r.AmbientLight),
		SmokeColor:      mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])},
		FireTemperature: float32(r.FireTemperature),

		AmbientTemperature: float32(cfg.Solver.AmbientTemperature),
	}
}

func (p Params) uniforms() gpu.Uniforms {
	return gpu.Uniforms{
		"material":        int32(p.Material),
		"stepSize":        p.StepSize,
		"absorption":      p.Absorption,
		"alphaCutoff":     p.AlphaCutoff,
		"lightSteps":      p.LightSteps,
		"lightStepSize":   p.LightStepSize,
		"lightDir":        p.LightDir,
		"ambientLight":    p.AmbientLight,
		"smokeColor":      p.SmokeColor,
		"fireTemperature": p.FireTemperature,

		"ambientTemperature": p.AmbientTemperature,
	}
}

// Raycaster draws the volume onto the display target.
type Raycaster struct {
	dev    gpu.Device
	lib    *gpu.ShaderLibrary
	params Params
}

// NewRaycaster creates a raycaster with the given shading parameters.
func NewRaycaster(dev gpu.Device, lib *gpu.ShaderLibrary, params Params) *Raycaster {
	return &Raycaster{dev: dev, lib: lib, params: params}
}

// Params returns the current render parameters.
func (r *Raycaster) Params() Params { return r.params }

// SetParams replaces the shading parameters used by the next Render.
func (r *Raycaster) SetParams(p Params) {
	r.params = p
}

// SetMaterial switches the shading model.
func (r *Raycaster) SetMaterial(m Material) {
	r.params.Material = m
}

// Render clears the display target and composites the volume over it
// with a full-screen quad, marching each pixel from its entry to its exit
// point. Pixels the cube does not cover stay transparent.
func (r *Raycaster) Render(surface *IntersectionSurface, density, temperature *field.Volume) {
	saved := r.dev.State()
	defer r.dev.RestoreState(saved)

	r.dev.SetViewport(surface.Viewport())
	r.dev.Clear(gpu.Screen, 0)
	r.dev.Draw(gpu.Pass{
		Program:  r.lib.Program(gpu.ProgRaycast),
		Target:   gpu.Screen,
		Geometry: gpu.GeometryQuad,
		Blend:    gpu.BlendAlpha,
		Cull:     true,
		Uniforms: r.params.uniforms(),
		Samplers: []gpu.Sampler{
			{Name: "rayStart", Texture: surface.Entry()},
			{Name: "rayStop", Texture: surface.Exit()},
			{Name: "density", Texture: density.Texture()},
			{Name: "temperature", Texture: temperature.Texture()},
		},
	})
}
