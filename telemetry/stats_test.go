package telemetry

import (
	"math"
	"testing"
)

func TestComputeFieldStats(t *testing.T) {
	// 2x4x1 grid with smoke in the top row only
	f := FieldData{
		W: 2, H: 4, D: 1,
		Density:     []float32{0, 0, 0, 0, 0, 0, 1, 3},
		Temperature: []float32{1, 1, 1, 1, 3, 3, 3, 3},
		Divergence:  []float32{0.1, -0.4, 0.2, 0, 0, 0, 0, 0},
		Velocity:    make([]float32, 8*3),
	}
	f.Velocity[3*5+0] = 3
	f.Velocity[3*5+1] = 4

	s := ComputeFieldStats(7, f)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"total density", s.TotalDensity, 4},
		{"max density", s.MaxDensity, 3},
		{"centroid", s.CentroidY, 3.5},
		{"mean temperature", s.MeanTemperature, 2},
		{"std temperature", s.StdTemperature, 1},
		{"max temperature", s.MaxTemperature, 3},
		{"max speed", s.MaxSpeed, 5},
		{"max divergence", s.MaxDivergence, 0.4},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-5 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if s.Step != 7 {
		t.Errorf("step = %d, want 7", s.Step)
	}
	if s.DensityP90 != 3 {
		t.Errorf("density p90 = %v, want 3", s.DensityP90)
	}
}

func TestComputeFieldStatsEmpty(t *testing.T) {
	s := ComputeFieldStats(3, FieldData{W: 2, H: 2, D: 2, Density: make([]float32, 8)})
	if s.TotalDensity != 0 || s.CentroidY != 0 || s.DensityP90 != 0 {
		t.Errorf("empty field stats = %+v", s)
	}
}
