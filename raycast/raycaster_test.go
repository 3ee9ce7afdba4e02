package raycast

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/soft"
)

var testGrid = gpu.Size{W: 16, H: 16, D: 16}

func newVolume(t *testing.T, dev gpu.Device, data []float32) *field.Volume {
	t.Helper()
	v, err := field.NewVolume(dev, testGrid, 1)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	t.Cleanup(v.Release)
	if data != nil {
		if err := v.Write(data); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	return v
}

func scaled(data []float32, k float32) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = v * k
	}
	return out
}

// render draws one frame of density and temperature seen from an orbit
// position and returns the screen.
func render(t *testing.T, params Params, density, temperature []float32) (gpu.Viewport, []float32) {
	t.Helper()
	dev, lib := newTestDevice(t)
	vp := gpu.Viewport{Width: 32, Height: 32}
	s := newTestSurface(t, dev, lib, vp)
	s.Compute(view(mgl32.Vec3{2, 1.5, 3}, vp))

	r := NewRaycaster(dev, lib, params)
	r.Render(s, newVolume(t, dev, density), newVolume(t, dev, temperature))
	w, h, rgba := dev.Screen()
	if w != vp.Width || h != vp.Height {
		t.Fatalf("screen is %dx%d, expected %dx%d", w, h, vp.Width, vp.Height)
	}
	return vp, rgba
}

func maxAlpha(rgba []float32) float32 {
	var m float32
	for i := 3; i < len(rgba); i += 4 {
		m = max(m, rgba[i])
	}
	return m
}

func TestRenderEmptyVolumeIsTransparent(t *testing.T) {
	_, rgba := render(t, DefaultParams(), nil, nil)
	if a := maxAlpha(rgba); a != 0 {
		t.Errorf("max alpha %f over an empty volume, expected 0", a)
	}
}

func TestRenderSmoke(t *testing.T) {
	cloud := field.CloudVolume(testGrid)
	vp, rgba := render(t, DefaultParams(), scaled(cloud, 2), nil)

	center := pixel(rgba, vp, vp.Width/2, vp.Height/2)
	if center[3] <= 0.5 {
		t.Errorf("center alpha %f, expected a dense cloud", center[3])
	}
	for i := range 3 {
		if center[i] <= 0 || center[i] > 1+1e-5 {
			t.Errorf("center channel %d = %f, expected in (0,1]", i, center[i])
		}
	}
	if corner := pixel(rgba, vp, 0, 0); corner != (mgl32.Vec4{}) {
		t.Errorf("corner pixel %v outside the cube, expected transparent", corner)
	}
}

func TestRenderFireFollowsTemperature(t *testing.T) {
	cloud := field.CloudVolume(testGrid)
	p := DefaultParams()
	p.Material = MaterialFire

	_, cold := render(t, p, cloud, nil)
	if a := maxAlpha(cold); a != 0 {
		t.Errorf("fire over cold smoke has alpha %f, expected 0", a)
	}

	vp, hot := render(t, p, cloud, scaled(cloud, 20))
	c := pixel(hot, vp, vp.Width/2, vp.Height/2)
	if c[3] <= 0 {
		t.Fatalf("hot center alpha %f, expected visible fire", c[3])
	}
	if c[0] < c[2] {
		t.Errorf("fire color %v is bluer than red", c)
	}
}

func TestRenderFireNeedsHotSmoke(t *testing.T) {
	const ambient = 2
	uniform := func(v float32) []float32 {
		data := make([]float32, testGrid.Texels())
		for i := range data {
			data[i] = v
		}
		return data
	}
	cloud := field.CloudVolume(testGrid)

	tests := []struct {
		name        string
		density     []float32
		temperature []float32
	}{
		{"no smoke at ambient", nil, uniform(ambient)},
		{"no smoke above ambient", nil, uniform(ambient + 20)},
		{"smoke at ambient", cloud, uniform(ambient)},
	}
	for _, m := range []Material{MaterialFire, MaterialBoth} {
		for _, tt := range tests {
			p := DefaultParams()
			p.Material = m
			p.AmbientTemperature = ambient
			_, rgba := render(t, p, tt.density, tt.temperature)
			a := maxAlpha(rgba)
			if m == MaterialFire || tt.density == nil {
				if a != 0 {
					t.Errorf("%s, %s: max alpha %f, expected 0", m, tt.name, a)
				}
			} else if a <= 0 {
				t.Errorf("%s, %s: smoke vanished", m, tt.name)
			}
		}
	}
}

func TestRenderRestoresState(t *testing.T) {
	dev, lib := newTestDevice(t)
	s := newTestSurface(t, dev, lib, gpu.Viewport{Width: 8, Height: 8})
	s.Compute(view(mgl32.Vec3{0, 0, 4}, s.Viewport()))
	r := NewRaycaster(dev, lib, DefaultParams())

	dev.SetViewport(gpu.Viewport{Width: 3, Height: 5})
	before := dev.State()
	r.Render(s, newVolume(t, dev, nil), newVolume(t, dev, nil))
	if after := dev.State(); after != before {
		t.Errorf("device state %+v after Render, expected %+v", after, before)
	}
}

func TestMaterial(t *testing.T) {
	m := MaterialSmoke
	var seen []string
	for range 4 {
		seen = append(seen, m.String())
		m = m.Next()
	}
	want := []string{"smoke", "fire", "both", "smoke"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("cycle step %d = %q, expected %q", i, seen[i], want[i])
		}
	}
	if s := Material(7).String(); s != "material(7)" {
		t.Errorf("unknown material string %q", s)
	}
}

func TestSetMaterial(t *testing.T) {
	dev := soft.New(soft.Options{Workers: 1})
	defer dev.Close()
	r := NewRaycaster(dev, nil, DefaultParams())
	r.SetMaterial(MaterialBoth)
	if r.Params().Material != MaterialBoth {
		t.Errorf("material %s, expected both", r.Params().Material)
	}
}
