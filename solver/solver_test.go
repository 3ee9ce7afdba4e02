package solver

import (
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/soft"
	"github.com/pthm-cable/plume/telemetry"
)

func newTestSolver(t *testing.T, size gpu.Size, mutate func(*Params)) (*Solver, *soft.Device) {
	t.Helper()
	dev := soft.New(soft.Options{Workers: 4})
	t.Cleanup(func() { dev.Close() })

	lib, err := gpu.LoadLibrary(dev, nil)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	t.Cleanup(lib.Release)

	params := DefaultParams(size)
	if mutate != nil {
		mutate(&params)
	}
	s, err := New(dev, lib, params, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Release)
	return s, dev
}

func read(t *testing.T, v interface{ Read() ([]float32, error) }) []float32 {
	t.Helper()
	data, err := v.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return data
}

func maxAbs(data []float32) float32 {
	var m float32
	for _, v := range data {
		m = max(m, math32.Abs(v))
	}
	return m
}

func cellIndex(size gpu.Size, x, y, z int) int {
	return (z*size.H+y)*size.W + x
}

// velocityField samples fn at every cell center.
func velocityField(size gpu.Size, fn func(p mgl32.Vec3) mgl32.Vec3) []float32 {
	data := make([]float32, size.Texels()*3)
	for z := 0; z < size.D; z++ {
		for y := 0; y < size.H; y++ {
			for x := 0; x < size.W; x++ {
				v := fn(mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5})
				copy(data[cellIndex(size, x, y, z)*3:], v[:])
			}
		}
	}
	return data
}

func TestNewRejectsInvalidParams(t *testing.T) {
	dev := soft.New(soft.Options{Workers: 1})
	defer dev.Close()
	lib, err := gpu.LoadLibrary(dev, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Release()

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative iterations", func(p *Params) { p.JacobiIterations = -1 }},
		{"zero cell size", func(p *Params) { p.CellSize = 0 }},
		{"empty grid", func(p *Params) { p.Size = gpu.Size{} }},
		{"zero radius", func(p *Params) { p.Impulses[0].Radius = 0 }},
		{"viscous without dt", func(p *Params) { p.Viscosity = 0.1; p.Dt = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(gpu.Size{W: 8, H: 8, D: 8})
			tt.mutate(&p)
			if s, err := New(dev, lib, p, nil); err == nil {
				s.Release()
				t.Error("expected error")
			}
		})
	}
}

func TestDivergenceOfRigidRotationIsZero(t *testing.T) {
	size := gpu.Size{W: 12, H: 12, D: 12}
	s, _ := newTestSolver(t, size, nil)

	c := float32(size.W) / 2
	v := velocityField(size, func(p mgl32.Vec3) mgl32.Vec3 {
		return mgl32.Vec3{-(p[1] - c), p[0] - c, 0}
	})
	if err := s.Velocity().Write(v); err != nil {
		t.Fatal(err)
	}

	s.Divergence()
	if m := maxAbs(read(t, s.State().Divergence)); m > 1e-5 {
		t.Errorf("max |div| = %v, want ~0", m)
	}
}

func TestDivergenceOfLinearExpansion(t *testing.T) {
	size := gpu.Size{W: 8, H: 8, D: 8}
	s, _ := newTestSolver(t, size, nil)

	// v = p has divergence 3 away from the clamped boundary
	if err := s.Velocity().Write(velocityField(size, func(p mgl32.Vec3) mgl32.Vec3 { return p })); err != nil {
		t.Fatal(err)
	}
	s.Divergence()
	div := read(t, s.State().Divergence)
	if got := div[cellIndex(size, 4, 4, 4)]; math32.Abs(got-3) > 1e-5 {
		t.Errorf("interior divergence = %v, want 3", got)
	}
}

func TestBoundary(t *testing.T) {
	tests := []struct {
		name  string
		scale float32
	}{
		{"pressure replicates", 1},
		{"velocity no-slip negates", -1},
	}
	size := gpu.Size{W: 4, H: 5, D: 6}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSolver(t, size, nil)
			p := s.State().Pressure

			src := make([]float32, size.Texels())
			for i := range src {
				src[i] = float32(i + 1)
			}
			if err := p.Current().Write(src); err != nil {
				t.Fatal(err)
			}

			s.Boundary(p, tt.scale)
			got := read(t, p.Previous())

			for z := 0; z < size.D; z++ {
				for y := 0; y < size.H; y++ {
					for x := 0; x < size.W; x++ {
						ox, oy, oz := inwardOffset(x, size.W), inwardOffset(y, size.H), inwardOffset(z, size.D)
						want := src[cellIndex(size, x, y, z)]
						if ox != 0 || oy != 0 || oz != 0 {
							want = tt.scale * src[cellIndex(size, x+ox, y+oy, z+oz)]
						}
						if g := got[cellIndex(size, x, y, z)]; g != want {
							t.Fatalf("cell (%d,%d,%d) = %v, want %v", x, y, z, g, want)
						}
					}
				}
			}
		})
	}
}

func inwardOffset(i, n int) int {
	switch i {
	case 0:
		return 1
	case n - 1:
		return -1
	}
	return 0
}

// blobVelocity is a radial inflow toward the grid center with a Gaussian
// envelope, scaled so its largest divergence magnitude is 10.
func blobVelocity(t *testing.T, s *Solver) []float32 {
	t.Helper()
	size := s.GridSize()
	c := mgl32.Vec3{float32(size.W) / 2, float32(size.H) / 2, float32(size.D) / 2}
	const sigma = 2
	v := velocityField(size, func(p mgl32.Vec3) mgl32.Vec3 {
		d := p.Sub(c)
		g := math32.Exp(-d.Dot(d) / (2 * sigma * sigma))
		return d.Mul(-g)
	})
	if err := s.Velocity().Write(v); err != nil {
		t.Fatal(err)
	}
	s.Divergence()
	scale := 10 / maxAbs(read(t, s.State().Divergence))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func TestProjectionConvergesWithIterations(t *testing.T) {
	if testing.Short() {
		t.Skip("32^3 projection sweep")
	}
	size := gpu.Size{W: 32, H: 32, D: 32}
	iterations := []int{0, 5, 10, 30}

	var residual []float32
	for _, n := range iterations {
		s, _ := newTestSolver(t, size, func(p *Params) { p.JacobiIterations = n })
		v := blobVelocity(t, s)
		if err := s.Velocity().Write(v); err != nil {
			t.Fatal(err)
		}

		s.Project()
		s.Divergence()
		residual = append(residual, maxAbs(read(t, s.State().Divergence)))
	}
	t.Logf("max |div| by iterations %v: %v", iterations, residual)

	if residual[0] < 9.9 {
		t.Errorf("unprojected divergence = %v, want ~10", residual[0])
	}
	for i := 1; i < len(residual); i++ {
		if residual[i] >= residual[i-1] {
			t.Errorf("divergence did not decrease from %d to %d iterations: %v -> %v",
				iterations[i-1], iterations[i], residual[i-1], residual[i])
		}
	}
	if last := residual[len(residual)-1]; last > 2.5 {
		t.Errorf("divergence after 30 iterations = %v, want < 2.5", last)
	}
}

func TestImpulseIsLocalAndRises(t *testing.T) {
	if testing.Short() {
		t.Skip("32^3 multi-step run")
	}
	size := gpu.Size{W: 32, H: 32, D: 32}
	s, _ := newTestSolver(t, size, nil)
	imp := s.Params().Impulses[0]

	if imp.Position != (mgl32.Vec3{16, 2.4, 16}) || imp.Radius != 4.8 {
		t.Fatalf("default impulse = %+v", imp)
	}

	s.Step()

	density := read(t, s.Density())
	temperature := read(t, s.Temperature())
	var inside int
	for z := 0; z < size.D; z++ {
		for y := 0; y < size.H; y++ {
			for x := 0; x < size.W; x++ {
				i := cellIndex(size, x, y, z)
				d := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(imp.Position).Len()
				if d >= imp.Radius {
					if density[i] != 0 || temperature[i] != 0 {
						t.Fatalf("cell (%d,%d,%d) at distance %v has density %v temperature %v",
							x, y, z, d, density[i], temperature[i])
					}
					continue
				}
				if density[i] <= 0 || temperature[i] <= 0 {
					t.Fatalf("cell (%d,%d,%d) inside the source is empty", x, y, z)
				}
				inside++
			}
		}
	}
	if inside == 0 {
		t.Fatal("impulse wrote nothing")
	}

	start := centroidY(size, density)

	// Buoyancy of the next step lifts the hot source
	s.Advect()
	s.Buoyancy()
	velocity := read(t, s.Velocity())
	if vy := velocity[cellIndex(size, 16, 2, 16)*3+1]; vy <= 0 {
		t.Errorf("velocity.y at the source = %v after buoyancy, want > 0", vy)
	}
	s.Impulses()
	s.Project()

	for range 3 {
		s.Step()
	}
	velocity = read(t, s.Velocity())
	if vy := velocity[cellIndex(size, 16, 2, 16)*3+1]; vy <= 0 {
		t.Errorf("velocity.y at the source = %v after projection, want > 0", vy)
	}
	end := centroidY(size, read(t, s.Density()))
	if end < start+0.5 {
		t.Errorf("density centroid moved from %v to %v, want it to rise", start, end)
	}
}

func centroidY(size gpu.Size, density []float32) float32 {
	var total, moment float32
	for z := 0; z < size.D; z++ {
		for y := 0; y < size.H; y++ {
			for x := 0; x < size.W; x++ {
				d := density[cellIndex(size, x, y, z)]
				total += d
				moment += d * (float32(y) + 0.5)
			}
		}
	}
	if total == 0 {
		return 0
	}
	return moment / total
}

func TestDiffuse(t *testing.T) {
	size := gpu.Size{W: 8, H: 8, D: 8}
	s, _ := newTestSolver(t, size, func(p *Params) {
		p.Viscosity = 0.5
		p.JacobiIterations = 10
	})

	// A uniform field is a fixed point
	uniform := velocityField(size, func(mgl32.Vec3) mgl32.Vec3 { return mgl32.Vec3{1, 2, 3} })
	if err := s.Velocity().Write(uniform); err != nil {
		t.Fatal(err)
	}
	s.Diffuse()
	got := read(t, s.Velocity())
	for i := range got {
		if math32.Abs(got[i]-uniform[i]) > 1e-5 {
			t.Fatalf("uniform velocity changed at %d: %v -> %v", i, uniform[i], got[i])
		}
	}

	// A spike spreads to its neighbours
	spike := make([]float32, size.Texels()*3)
	spike[cellIndex(size, 4, 4, 4)*3] = 1
	if err := s.Velocity().Write(spike); err != nil {
		t.Fatal(err)
	}
	s.Diffuse()
	got = read(t, s.Velocity())
	if peak := got[cellIndex(size, 4, 4, 4)*3]; peak >= 1 || peak <= 0 {
		t.Errorf("spike after diffusion = %v, want in (0, 1)", peak)
	}
	if n := got[cellIndex(size, 5, 4, 4)*3]; n <= 0 {
		t.Errorf("neighbour after diffusion = %v, want > 0", n)
	}
}

func TestDiffuseSkippedWhenInviscid(t *testing.T) {
	s, dev := newTestSolver(t, gpu.Size{W: 4, H: 4, D: 4}, nil)
	before := dev.Draws()
	s.Diffuse()
	if dev.Draws() != before {
		t.Errorf("inviscid Diffuse drew %d passes", dev.Draws()-before)
	}
}

func TestRestart(t *testing.T) {
	s, _ := newTestSolver(t, gpu.Size{W: 8, H: 8, D: 8}, func(p *Params) {
		p.AmbientTemperature = 0.5
		p.Impulses[0].Temperature = 3
	})
	s.Step()
	s.Step()
	if s.Steps() != 2 {
		t.Fatalf("steps = %d, want 2", s.Steps())
	}

	s.Restart()
	if s.Steps() != 0 {
		t.Errorf("steps after restart = %d", s.Steps())
	}
	for i, d := range read(t, s.Density()) {
		if d != 0 {
			t.Fatalf("density[%d] = %v after restart", i, d)
		}
	}
	for i, v := range read(t, s.Temperature()) {
		if v != 0.5 {
			t.Fatalf("temperature[%d] = %v after restart, want ambient", i, v)
		}
	}
}

func TestStepRestoresDeviceState(t *testing.T) {
	s, dev := newTestSolver(t, gpu.Size{W: 8, H: 8, D: 8}, nil)

	dev.SetViewport(gpu.Viewport{Width: 64, Height: 48})
	want := gpu.State{Viewport: gpu.Viewport{Width: 64, Height: 48}, Blend: gpu.BlendAlpha, Cull: true}
	dev.RestoreState(want)

	s.Step()
	if got := dev.State(); got.Viewport != want.Viewport || got.Blend != want.Blend || got.Cull != want.Cull {
		t.Errorf("state after Step = %+v, want %+v", got, want)
	}
}

type phaseLog []string

func (l *phaseLog) StartPhase(p string) { *l = append(*l, p) }

func TestStepReportsPhasesInOrder(t *testing.T) {
	s, _ := newTestSolver(t, gpu.Size{W: 4, H: 4, D: 4}, nil)
	var log phaseLog
	s.SetPhaseRecorder(&log)
	s.Step()

	want := []string{
		telemetry.PhaseAdvect, telemetry.PhaseBuoyancy, telemetry.PhaseImpulse,
		telemetry.PhaseDiffuse, telemetry.PhaseProject,
	}
	if !slices.Equal(log, want) {
		t.Errorf("phases = %v, want %v", log, want)
	}

	s.SetPhaseRecorder(nil)
	s.Step()
	if len(log) != len(want) {
		t.Errorf("recorder still called after removal")
	}
}

func TestEmitters(t *testing.T) {
	size := gpu.Size{W: 16, H: 16, D: 16}
	s, _ := newTestSolver(t, size, func(p *Params) { p.Impulses = nil })
	em := s.Emitters()
	if em.Len() != 0 {
		t.Fatalf("emitters = %d, want 0", em.Len())
	}

	a := em.Add(Impulse{Position: mgl32.Vec3{4, 4, 4}, Radius: 2, Density: 1})
	b := em.Add(Impulse{Position: mgl32.Vec3{12, 12, 12}, Radius: 2, Density: 1})
	if em.Len() != 2 {
		t.Fatalf("emitters = %d, want 2", em.Len())
	}

	s.Impulses()
	density := read(t, s.Density())
	if density[cellIndex(size, 3, 3, 3)] <= 0 || density[cellIndex(size, 11, 11, 11)] <= 0 {
		t.Error("expected density at both emitters")
	}

	em.Remove(a)
	em.Remove(a)
	if em.Len() != 1 {
		t.Errorf("emitters after remove = %d, want 1", em.Len())
	}

	em.Move(b, mgl32.Vec3{8, 8, 8})
	var moved mgl32.Vec3
	em.Each(func(imp Impulse) { moved = imp.Position })
	if moved != (mgl32.Vec3{8, 8, 8}) {
		t.Errorf("moved emitter at %v", moved)
	}
}

func BenchmarkStep32(b *testing.B) {
	dev := soft.New(soft.Options{})
	defer dev.Close()
	lib, err := gpu.LoadLibrary(dev, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer lib.Release()
	s, err := New(dev, lib, DefaultParams(gpu.Size{W: 32, H: 32, D: 32}), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer s.Release()

	b.ResetTimer()
	for b.Loop() {
		s.Step()
	}
}

// recordingDevice keeps every pass drawn through it.
type recordingDevice struct {
	gpu.Device
	passes []gpu.Pass
}

func (d *recordingDevice) Draw(p gpu.Pass) {
	d.passes = append(d.passes, p)
	d.Device.Draw(p)
}

func TestStepSetsEveryDeclaredInput(t *testing.T) {
	inner := soft.New(soft.Options{Workers: 2})
	defer inner.Close()
	dev := &recordingDevice{Device: inner}
	lib, err := gpu.LoadLibrary(dev, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Release()

	params := DefaultParams(gpu.Size{W: 8, H: 8, D: 8})
	params.Viscosity = 0.5
	params.JacobiIterations = 2
	s, err := New(dev, lib, params, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()
	s.Step()

	copies := 0
	for i, p := range dev.passes {
		missing, err := gpu.MissingInputs(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(missing) > 0 {
			t.Errorf("pass %d (%s) leaves %v unset", i, p.Program.ID, missing)
		}
		if p.Program.ID == gpu.ProgAdvect && p.Uniforms.Float("dt") == 0 {
			copies++
		}
	}
	if copies != 1 {
		t.Errorf("%d zero-timestep copies, expected the diffusion right-hand side", copies)
	}
}
