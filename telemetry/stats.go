package telemetry

import (
	"log/slog"
	"sort"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/stat"
)

// FieldStats summarizes the simulation fields at one step.
type FieldStats struct {
	Step int `csv:"step"`

	// Density
	TotalDensity float64 `csv:"total_density"`
	MaxDensity   float64 `csv:"max_density"`
	DensityP90   float64 `csv:"density_p90"` // over cells holding smoke
	CentroidY    float64 `csv:"centroid_y"`  // density-weighted height in cells

	// Temperature
	MeanTemperature float64 `csv:"mean_temperature"`
	StdTemperature  float64 `csv:"std_temperature"`
	MaxTemperature  float64 `csv:"max_temperature"`

	// Velocity
	MaxSpeed      float64 `csv:"max_speed"`
	MaxDivergence float64 `csv:"max_divergence"` // absolute, after projection
}

// FieldData is a host copy of the fields for one grid. Velocity holds
// three interleaved components per cell; the others hold one.
type FieldData struct {
	W, H, D     int
	Velocity    []float32
	Density     []float32
	Temperature []float32
	Divergence  []float32
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// ComputeFieldStats reduces f to its summary statistics.
func ComputeFieldStats(step int, f FieldData) FieldStats {
	s := FieldStats{Step: step}
	if len(f.Density) == 0 {
		return s
	}

	// Density is non-negative, so its absolute sum is the total
	density := vector(f.Density)
	total := blas32.Asum(density)
	s.TotalDensity = float64(total)
	s.MaxDensity = float64(f.Density[blas32.Iamax(density)])

	if total > 0 {
		// Each x-row is contiguous; weight row sums by their height
		var moment float64
		for z := 0; z < f.D; z++ {
			for y := 0; y < f.H; y++ {
				start := (z*f.H + y) * f.W
				row := vector(f.Density[start : start+f.W])
				moment += (float64(y) + 0.5) * float64(blas32.Asum(row))
			}
		}
		s.CentroidY = moment / s.TotalDensity
	}

	var smoke []float64
	for _, d := range f.Density {
		if d > 0 {
			smoke = append(smoke, float64(d))
		}
	}
	if len(smoke) > 0 {
		sort.Float64s(smoke)
		s.DensityP90 = stat.Quantile(0.9, stat.Empirical, smoke, nil)
	}

	if len(f.Temperature) > 0 {
		temps := make([]float64, len(f.Temperature))
		for i, t := range f.Temperature {
			temps[i] = float64(t)
		}
		s.MeanTemperature, s.StdTemperature = stat.PopMeanStdDev(temps, nil)
		s.MaxTemperature = float64(f.Temperature[0])
		for _, t := range f.Temperature {
			s.MaxTemperature = max(s.MaxTemperature, float64(t))
		}
	}

	for i := 0; i+3 <= len(f.Velocity); i += 3 {
		speed := blas32.Nrm2(vector(f.Velocity[i : i+3]))
		s.MaxSpeed = max(s.MaxSpeed, float64(speed))
	}

	if len(f.Divergence) > 0 {
		i := blas32.Iamax(vector(f.Divergence))
		s.MaxDivergence = float64(math32.Abs(f.Divergence[i]))
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s FieldStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Float64("total_density", s.TotalDensity),
		slog.Float64("max_density", s.MaxDensity),
		slog.Float64("density_p90", s.DensityP90),
		slog.Float64("centroid_y", s.CentroidY),
		slog.Float64("mean_temperature", s.MeanTemperature),
		slog.Float64("std_temperature", s.StdTemperature),
		slog.Float64("max_temperature", s.MaxTemperature),
		slog.Float64("max_speed", s.MaxSpeed),
		slog.Float64("max_divergence", s.MaxDivergence),
	)
}

// LogStats logs the field stats.
func (s FieldStats) LogStats(logger *slog.Logger) {
	logger.Info("fields", "stats", s)
}
