package soft

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d := New(Options{Workers: 3})
	t.Cleanup(func() { d.Close() })
	return d
}

func mustProgram(t *testing.T, d *Device, id gpu.ProgramID) gpu.Program {
	t.Helper()
	src, err := gpu.SourceFor(id)
	if err != nil {
		t.Fatalf("SourceFor(%s): %v", id, err)
	}
	p, err := d.CompileProgram(id, src)
	if err != nil {
		t.Fatalf("CompileProgram(%s): %v", id, err)
	}
	return p
}

func TestCreateVolumeZeroed(t *testing.T) {
	d := newTestDevice(t)
	tex, _, err := d.CreateVolume(gpu.Size{W: 4, H: 3, D: 2}, 3)
	if err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}
	data, err := d.Download(tex)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(data) != 4*3*2*3 {
		t.Fatalf("expected %d floats, got %d", 4*3*2*3, len(data))
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("texel component %d = %f, expected 0", i, v)
		}
	}
}

func TestCreateVolumeLimits(t *testing.T) {
	d := New(Options{MaxVolumeSize: 16, MaxTexels: 1000, Workers: 1})
	defer d.Close()

	tests := []struct {
		name  string
		size  gpu.Size
		comps int
	}{
		{"dimension over max", gpu.Size{W: 17, H: 4, D: 4}, 1},
		{"texel budget", gpu.Size{W: 16, H: 16, D: 16}, 1},
		{"zero dimension", gpu.Size{W: 0, H: 4, D: 4}, 1},
		{"too many components", gpu.Size{W: 4, H: 4, D: 4}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := d.CreateVolume(tt.size, tt.comps)
			if !errors.Is(err, gpu.ErrAllocation) {
				t.Errorf("expected ErrAllocation, got %v", err)
			}
		})
	}
}

func TestClearReplicatesValue(t *testing.T) {
	d := newTestDevice(t)
	for _, comps := range []int{1, 2, 3, 4} {
		tex, fb, err := d.CreateVolume(gpu.Size{W: 5, H: 5, D: 5}, comps)
		if err != nil {
			t.Fatalf("CreateVolume: %v", err)
		}
		d.Clear(fb, 2.5)
		data, _ := d.Download(tex)
		for i, v := range data {
			if v != 2.5 {
				t.Fatalf("comps=%d: component %d = %f, expected 2.5", comps, i, v)
			}
		}
	}
}

func TestUploadErrors(t *testing.T) {
	d := newTestDevice(t)
	tex, _, err := d.CreateVolume(gpu.Size{W: 2, H: 2, D: 2}, 1)
	if err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}
	if err := d.Upload(tex, make([]float32, 7)); !errors.Is(err, gpu.ErrDataSize) {
		t.Errorf("short upload: expected ErrDataSize, got %v", err)
	}
	d.DeleteTexture(tex)
	if _, err := d.Download(tex); !errors.Is(err, gpu.ErrUnknownHandle) {
		t.Errorf("released download: expected ErrUnknownHandle, got %v", err)
	}
}

func TestCompileProgramRejectsMissingStage(t *testing.T) {
	d := newTestDevice(t)
	_, err := d.CompileProgram(gpu.ProgAdvect, gpu.Source{Vertex: "v"})
	if !errors.Is(err, gpu.ErrShaderLink) {
		t.Errorf("expected ErrShaderLink, got %v", err)
	}
}

func TestDrawPanicsOnFeedbackLoop(t *testing.T) {
	d := newTestDevice(t)
	size := gpu.Size{W: 4, H: 4, D: 4}
	tex, fb, _ := d.CreateVolume(size, 1)
	d.SetViewport(size.Viewport())
	p := mustProgram(t, d, gpu.ProgBoundary)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when a pass samples its own target")
		}
	}()
	d.Draw(gpu.Pass{
		Program:  p,
		Target:   fb,
		Geometry: gpu.GeometrySlices,
		Uniforms: gpu.Uniforms{"scale": float32(1)},
		Samplers: []gpu.Sampler{{Name: "source", Texture: tex}},
	})
}

func TestTrilinearAtTexelCentersIsExact(t *testing.T) {
	tex := newTexture(4, 3, 2, 1)
	for i := range tex.data {
		tex.data[i] = float32(i)
	}
	for z := 0; z < 2; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 4; x++ {
				coord := mgl32.Vec3{(float32(x) + 0.5) / 4, (float32(y) + 0.5) / 3, (float32(z) + 0.5) / 2}
				got := tex.trilinear(coord)[0]
				want := tex.data[tex.index(x, y, z)]
				if math.Abs(float64(got-want)) > 1e-5 {
					t.Errorf("(%d,%d,%d): got %f, want %f", x, y, z, got, want)
				}
			}
		}
	}
}

func TestTrilinearInterpolatesAndClamps(t *testing.T) {
	tex := newTexture(2, 1, 1, 1)
	tex.data[0] = 0
	tex.data[1] = 10

	tests := []struct {
		u    float32
		want float32
	}{
		{0.5, 5},   // midway between the two centers
		{-3, 0},    // clamped to the first texel
		{0.25, 0},  // at the first center
		{0.75, 10}, // at the second center
		{0.375, 2.5},
	}
	for _, tt := range tests {
		got := tex.trilinear(mgl32.Vec3{tt.u, 0.5, 0.5})[0]
		if math.Abs(float64(got-tt.want)) > 1e-5 {
			t.Errorf("u=%f: got %f, want %f", tt.u, got, tt.want)
		}
	}
}

func TestTexelExpandsComponents(t *testing.T) {
	tex := newTexture(1, 1, 1, 1)
	tex.data[0] = 3
	got := tex.texel(0, 0, 0)
	want := mgl32.Vec4{3, 0, 0, 1}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBlendModes(t *testing.T) {
	tests := []struct {
		mode gpu.Blend
		dst  []float32
		src  mgl32.Vec4
		want []float32
	}{
		{gpu.BlendNone, []float32{1, 1}, mgl32.Vec4{3, 4, 0, 0}, []float32{3, 4}},
		{gpu.BlendAdditive, []float32{1, 1}, mgl32.Vec4{3, 4, 0, 0}, []float32{4, 5}},
		{gpu.BlendAlpha, []float32{1, 1, 1, 1}, mgl32.Vec4{0, 0, 0, 0.25}, []float32{0.75, 0.75, 0.75, 0.8125}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			blendInto(tt.dst, tt.src, tt.mode)
			for i := range tt.want {
				if math.Abs(float64(tt.dst[i]-tt.want[i])) > 1e-6 {
					t.Errorf("component %d: got %f, want %f", i, tt.dst[i], tt.want[i])
				}
			}
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	d := newTestDevice(t)
	d.SetViewport(gpu.Viewport{Width: 10, Height: 20})
	saved := d.State()

	size := gpu.Size{W: 2, H: 2, D: 2}
	_, fb, _ := d.CreateVolume(size, 1)
	d.SetViewport(size.Viewport())
	d.Draw(gpu.Pass{
		Program:  mustProgram(t, d, gpu.ProgImpulse),
		Target:   fb,
		Geometry: gpu.GeometrySlices,
		Blend:    gpu.BlendAdditive,
		Uniforms: gpu.Uniforms{"radius": float32(1)},
	})
	if d.State().Blend != gpu.BlendAdditive {
		t.Errorf("expected pass blend to persist, got %s", d.State().Blend)
	}

	d.RestoreState(saved)
	got := d.State()
	if got.Viewport != saved.Viewport || got.Blend != saved.Blend || got.Cull != saved.Cull {
		t.Errorf("restored state %+v, want %+v", got, saved)
	}
}

func TestWorkerPoolCoversRange(t *testing.T) {
	p := newWorkerPool(4)
	defer p.stop()

	for _, n := range []int{1, 3, 4, 17, 64} {
		hits := make([]int, n)
		p.run(n, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}

func BenchmarkJacobi64(b *testing.B) {
	d := New(Options{})
	defer d.Close()
	size := gpu.Size{W: 64, H: 64, D: 64}
	x, _, _ := d.CreateVolume(size, 1)
	rhs, _, _ := d.CreateVolume(size, 1)
	_, out, _ := d.CreateVolume(size, 1)
	src, _ := gpu.SourceFor(gpu.ProgJacobi)
	p, _ := d.CompileProgram(gpu.ProgJacobi, src)
	d.SetViewport(size.Viewport())

	pass := gpu.Pass{
		Program:  p,
		Target:   out,
		Geometry: gpu.GeometrySlices,
		Uniforms: gpu.Uniforms{"alpha": float32(-1), "rBeta": float32(1.0 / 6)},
		Samplers: []gpu.Sampler{{Name: "x", Texture: x}, {Name: "b", Texture: rhs}},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Draw(pass)
	}
}
