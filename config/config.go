// Package config provides configuration loading for the simulation and
// renderer.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Solver    SolverConfig    `yaml:"solver"`
	Emitters  []EmitterConfig `yaml:"emitters"`
	Raycast   RaycastConfig   `yaml:"raycast"`
	Camera    CameraConfig    `yaml:"camera"`
	Device    DeviceConfig    `yaml:"device"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig is the simulation grid resolution in cells. It is
// independent of the window size.
type GridConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"`
}

// SolverConfig holds fluid solver coefficients.
type SolverConfig struct {
	DT                     float64    `yaml:"dt"`
	VelocityDissipation    float64    `yaml:"velocity_dissipation"`
	DensityDissipation     float64    `yaml:"density_dissipation"`
	TemperatureDissipation float64    `yaml:"temperature_dissipation"`
	AmbientTemperature     float64    `yaml:"ambient_temperature"`
	Buoyancy               float64    `yaml:"buoyancy"` // sigma, lift per degree above ambient
	Weight                 float64    `yaml:"weight"`   // kappa, sink per unit density
	Viscosity              float64    `yaml:"viscosity"`
	JacobiIterations       int        `yaml:"jacobi_iterations"`
	CellSize               float64    `yaml:"cell_size"`
	GradientScale          float64    `yaml:"gradient_scale"`
	Direction              [3]float64 `yaml:"direction"`
}

// EmitterConfig is one impulse source, in grid cells.
type EmitterConfig struct {
	Position    *[3]float64 `yaml:"position,omitempty"`
	Radius      float64     `yaml:"radius"`
	Temperature float64     `yaml:"temperature"`
	Density     float64     `yaml:"density"`
}

// RaycastConfig holds volume rendering settings.
type RaycastConfig struct {
	Material        string     `yaml:"material"`
	StepSize        float64    `yaml:"step_size"`
	Absorption      float64    `yaml:"absorption"`
	AlphaCutoff     float64    `yaml:"alpha_cutoff"`
	LightSteps      int        `yaml:"light_steps"`
	LightStepSize   float64    `yaml:"light_step_size"`
	LightDir        [3]float64 `yaml:"light_dir"`
	AmbientLight    float64    `yaml:"ambient_light"`
	SmokeColor      [3]float64 `yaml:"smoke_color"`
	FireTemperature float64    `yaml:"fire_temperature"`
}

// CameraConfig holds the orbit camera defaults. Angles are in radians
// except FOV, which is in degrees.
type CameraConfig struct {
	FOV        float64 `yaml:"fov"`
	Near       float64 `yaml:"near"`
	Far        float64 `yaml:"far"`
	Distance   float64 `yaml:"distance"`
	Yaw        float64 `yaml:"yaw"`
	Pitch      float64 `yaml:"pitch"`
	OrbitSpeed float64 `yaml:"orbit_speed"`
	ZoomSpeed  float64 `yaml:"zoom_speed"`
}

// DeviceConfig selects and sizes the GPU device.
type DeviceConfig struct {
	Backend       string `yaml:"backend"`
	Workers       int    `yaml:"workers"`
	MaxVolumeSize int    `yaml:"max_volume_size"`
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	StatsWindow    float64 `yaml:"stats_window"`
	SampleInterval int     `yaml:"sample_interval"`
	// SyncPhases waits for the device at every phase boundary so phase
	// times are GPU times. It slows the simulation down.
	SyncPhases bool `yaml:"sync_phases"`
}

// Material values, matching the raycast program's material uniform.
const (
	MaterialSmoke = 0
	MaterialFire  = 1
	MaterialBoth  = 2
)

// MaterialNames maps material values to their config names.
var MaterialNames = [...]string{"smoke", "fire", "both"}

// ParseMaterial returns the material value for a config name.
func ParseMaterial(name string) (int, error) {
	for i, n := range MaterialNames {
		if strings.EqualFold(name, n) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown material %q", name)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32          float32 // Solver.DT as float32
	GradientScale float32 // Solver.GradientScale, or 0.5/cell_size when unset
	Material      int     // parsed Raycast.Material
	LightDir      [3]float32
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived validates the loaded config and fills in derived and
// defaulted values.
func (c *Config) computeDerived() error {
	g := c.Grid
	if g.Width <= 0 || g.Height <= 0 || g.Depth <= 0 {
		return fmt.Errorf("grid: dimensions must be positive, got %dx%dx%d", g.Width, g.Height, g.Depth)
	}
	if c.Solver.CellSize <= 0 {
		return fmt.Errorf("solver: cell_size must be positive, got %v", c.Solver.CellSize)
	}
	if c.Solver.JacobiIterations < 0 {
		return fmt.Errorf("solver: jacobi_iterations must not be negative, got %d", c.Solver.JacobiIterations)
	}

	c.Derived.DT32 = float32(c.Solver.DT)
	c.Derived.GradientScale = float32(c.Solver.GradientScale)
	if c.Solver.GradientScale == 0 {
		c.Derived.GradientScale = float32(0.5 / c.Solver.CellSize)
	}

	m, err := ParseMaterial(c.Raycast.Material)
	if err != nil {
		return fmt.Errorf("raycast: %w", err)
	}
	c.Derived.Material = m

	l := c.Raycast.LightDir
	n := math.Sqrt(l[0]*l[0] + l[1]*l[1] + l[2]*l[2])
	if n == 0 {
		return fmt.Errorf("raycast: light_dir must not be zero")
	}
	c.Derived.LightDir = [3]float32{float32(l[0] / n), float32(l[1] / n), float32(l[2] / n)}

	// Emitters default to the bottom center of the grid
	for i := range c.Emitters {
		e := &c.Emitters[i]
		if e.Radius == 0 {
			e.Radius = float64(g.Width) * 0.15
		}
		if e.Position == nil {
			e.Position = &[3]float64{float64(g.Width) / 2, e.Radius / 2, float64(g.Depth) / 2}
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
