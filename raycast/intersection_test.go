package raycast

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/gpu/soft"
)

func newTestDevice(t testing.TB) (*soft.Device, *gpu.ShaderLibrary) {
	t.Helper()
	dev := soft.New(soft.Options{Workers: 4})
	lib, err := gpu.LoadLibrary(dev, nil)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	t.Cleanup(func() {
		lib.Release()
		dev.Close()
	})
	return dev, lib
}

func newTestSurface(t testing.TB, dev gpu.Device, lib *gpu.ShaderLibrary, vp gpu.Viewport) *IntersectionSurface {
	t.Helper()
	s, err := NewIntersectionSurface(dev, lib, vp)
	if err != nil {
		t.Fatalf("NewIntersectionSurface: %v", err)
	}
	t.Cleanup(s.Release)
	return s
}

func view(eye mgl32.Vec3, vp gpu.Viewport) (mv, proj mgl32.Mat4) {
	mv = mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj = mgl32.Perspective(mgl32.DegToRad(60), float32(vp.Width)/float32(vp.Height), 0.1, 200)
	return mv, proj
}

func pixel(data []float32, vp gpu.Viewport, x, y int) mgl32.Vec4 {
	i := (y*vp.Width + x) * 4
	return mgl32.Vec4{data[i], data[i+1], data[i+2], data[i+3]}
}

func TestIntersectionHeadOn(t *testing.T) {
	dev, lib := newTestDevice(t)
	vp := gpu.Viewport{Width: 64, Height: 64}
	s := newTestSurface(t, dev, lib, vp)

	s.Compute(view(mgl32.Vec3{0, 0, -4}, vp))
	entry, exit, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	in := pixel(entry, vp, 32, 32)
	out := pixel(exit, vp, 32, 32)
	if in[3] != 1 || out[3] != 1 {
		t.Fatalf("center pixel not covered: entry %v exit %v", in, out)
	}
	if math.Abs(float64(in.Z()+1)) > 1e-3 {
		t.Errorf("entry z = %f, expected -1", in.Z())
	}
	if math.Abs(float64(out.Z()-1)) > 1e-3 {
		t.Errorf("exit z = %f, expected 1", out.Z())
	}
	if in.Z() >= out.Z() {
		t.Errorf("entry z %f not before exit z %f", in.Z(), out.Z())
	}

	for _, c := range [][2]int{{0, 0}, {63, 0}, {0, 63}, {63, 63}} {
		if p := pixel(entry, vp, c[0], c[1]); p != (mgl32.Vec4{}) {
			t.Errorf("corner %v entry = %v, expected zero", c, p)
		}
		if p := pixel(exit, vp, c[0], c[1]); p != (mgl32.Vec4{}) {
			t.Errorf("corner %v exit = %v, expected zero", c, p)
		}
	}
}

// Every covered pixel gets exactly one front and one back fragment, so
// both alphas are 0 or 1 and agree.
// The default camera sits on +z looking down -z, so the ray enters through
// the z=+1 face.
func TestIntersectionFromPositiveZ(t *testing.T) {
	dev, lib := newTestDevice(t)
	vp := gpu.Viewport{Width: 64, Height: 64}
	s := newTestSurface(t, dev, lib, vp)

	eye := mgl32.Vec3{0, 0, 4}
	s.Compute(view(eye, vp))
	entry, exit, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	for _, c := range [][2]int{{32, 32}, {28, 30}, {36, 34}} {
		in := pixel(entry, vp, c[0], c[1])
		out := pixel(exit, vp, c[0], c[1])
		if in[3] != 1 || out[3] != 1 {
			t.Fatalf("pixel %v not covered: entry %v exit %v", c, in, out)
		}
		if math.Abs(float64(in.Z()-1)) > 1e-3 {
			t.Errorf("pixel %v: entry z = %f, expected 1", c, in.Z())
		}
		if math.Abs(float64(out.Z()+1)) > 1e-3 {
			t.Errorf("pixel %v: exit z = %f, expected -1", c, out.Z())
		}
		near := in.Vec3().Sub(eye).Len()
		far := out.Vec3().Sub(eye).Len()
		if near >= far {
			t.Errorf("pixel %v: entry at distance %f, exit at %f", c, near, far)
		}
	}
}

func TestIntersectionCoverageAgrees(t *testing.T) {
	dev, lib := newTestDevice(t)
	vp := gpu.Viewport{Width: 48, Height: 32}
	s := newTestSurface(t, dev, lib, vp)

	eye := mgl32.Vec3{2.5, 1.8, 2.2}
	s.Compute(view(eye, vp))
	entry, exit, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	covered := 0
	for y := range vp.Height {
		for x := range vp.Width {
			in := pixel(entry, vp, x, y)
			out := pixel(exit, vp, x, y)
			if in[3] != out[3] || (in[3] != 0 && in[3] != 1) {
				t.Fatalf("pixel (%d,%d): entry alpha %f, exit alpha %f", x, y, in[3], out[3])
			}
			if in[3] == 0 {
				continue
			}
			covered++
			if dIn, dOut := in.Vec3().Sub(eye).Len(), out.Vec3().Sub(eye).Len(); dIn > dOut+1e-4 {
				t.Errorf("pixel (%d,%d): entry %.4f from eye, exit %.4f", x, y, dIn, dOut)
			}
			for i := range 3 {
				if math.Abs(float64(in[i])) > 1+1e-4 || math.Abs(float64(out[i])) > 1+1e-4 {
					t.Fatalf("pixel (%d,%d): hit outside the domain: %v %v", x, y, in, out)
				}
			}
		}
	}
	if covered == 0 {
		t.Fatal("cube covers no pixels")
	}
}

func TestIntersectionRecomputeClears(t *testing.T) {
	dev, lib := newTestDevice(t)
	vp := gpu.Viewport{Width: 32, Height: 32}
	s := newTestSurface(t, dev, lib, vp)

	s.Compute(view(mgl32.Vec3{0, 0, -4}, vp))
	// Far enough that the cube covers only the central pixels.
	s.Compute(view(mgl32.Vec3{0, 0, -30}, vp))
	entry, _, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if p := pixel(entry, vp, 8, 8); p != (mgl32.Vec4{}) {
		t.Errorf("stale entry left at (8,8): %v", p)
	}
	if p := pixel(entry, vp, 16, 16); p[3] != 1 {
		t.Errorf("center alpha = %f after recompute, expected 1", p[3])
	}
}

func TestIntersectionRestoresState(t *testing.T) {
	dev, lib := newTestDevice(t)
	s := newTestSurface(t, dev, lib, gpu.Viewport{Width: 16, Height: 16})

	dev.SetViewport(gpu.Viewport{Width: 3, Height: 5})
	before := dev.State()
	s.Compute(view(mgl32.Vec3{0, 0, -4}, s.Viewport()))
	if after := dev.State(); after != before {
		t.Errorf("device state %+v after Compute, expected %+v", after, before)
	}
}

func TestIntersectionResize(t *testing.T) {
	dev, lib := newTestDevice(t)
	s := newTestSurface(t, dev, lib, gpu.Viewport{Width: 16, Height: 16})
	oldEntry := s.Entry()

	vp := gpu.Viewport{Width: 24, Height: 12}
	if err := s.Resize(vp); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if s.Viewport() != vp {
		t.Errorf("viewport %+v, expected %+v", s.Viewport(), vp)
	}
	if _, err := dev.Download(oldEntry); !errors.Is(err, gpu.ErrUnknownHandle) {
		t.Errorf("old entry texture still alive: %v", err)
	}
	entry, _, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entry) != vp.Width*vp.Height*4 {
		t.Errorf("entry holds %d floats, expected %d", len(entry), vp.Width*vp.Height*4)
	}

	if err := s.Resize(gpu.Viewport{}); !errors.Is(err, gpu.ErrAllocation) {
		t.Errorf("Resize to empty viewport: expected ErrAllocation, got %v", err)
	}
	if s.Viewport() != vp {
		t.Errorf("failed resize changed viewport to %+v", s.Viewport())
	}
	if _, _, err := s.Read(); err != nil {
		t.Errorf("surface unusable after failed resize: %v", err)
	}
}
