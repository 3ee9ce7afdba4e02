package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
)

func testConfig() config.CameraConfig {
	return config.CameraConfig{FOV: 60, Near: 0.1, Far: 200, Distance: 4}
}

func TestNew(t *testing.T) {
	cam := New(testConfig(), 1280, 720)

	eye := cam.Eye()
	if !eye.ApproxEqualThreshold(mgl32.Vec3{0, 0, 4}, 1e-5) {
		t.Errorf("expected eye at (0, 0, 4), got %v", eye)
	}
	if math.Abs(float64(cam.Aspect()-1280.0/720)) > 1e-5 {
		t.Errorf("expected aspect 16:9, got %f", cam.Aspect())
	}
}

func TestOriginAtScreenCenter(t *testing.T) {
	cam := New(testConfig(), 1280, 720)
	cam.Orbit(0.7, 0.4)

	sx, sy, ok := cam.WorldToScreen(mgl32.Vec3{})
	if !ok {
		t.Fatal("origin reported behind the camera")
	}
	if math.Abs(float64(sx-640)) > 0.01 || math.Abs(float64(sy-360)) > 0.01 {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestUpIsUp(t *testing.T) {
	cam := New(testConfig(), 800, 800)
	_, top, _ := cam.WorldToScreen(mgl32.Vec3{0, 1, 0})
	_, bottom, _ := cam.WorldToScreen(mgl32.Vec3{0, -1, 0})
	if top >= bottom {
		t.Errorf("+y projects to row %f, below -y at %f", top, bottom)
	}
}

func TestOrbitKeepsDistance(t *testing.T) {
	cam := New(testConfig(), 800, 600)
	for range 50 {
		cam.Orbit(0.3, 0.1)
		if d := cam.Eye().Len(); math.Abs(float64(d-4)) > 1e-4 {
			t.Fatalf("eye drifted to distance %f", d)
		}
	}
}

func TestPitchClamped(t *testing.T) {
	cam := New(testConfig(), 800, 600)
	cam.Orbit(0, 10)
	if cam.Pitch >= math.Pi/2 {
		t.Errorf("pitch %f reached the pole", cam.Pitch)
	}
	// LookAt must stay well defined near the pole.
	mv := cam.ModelView()
	for i := range 16 {
		if v := mv[i]; math.IsNaN(float64(v)) {
			t.Fatalf("model-view has NaN at %d", i)
		}
	}
	cam.Orbit(0, -20)
	if cam.Pitch <= -math.Pi/2 {
		t.Errorf("pitch %f reached the pole", cam.Pitch)
	}
}

func TestZoomClamped(t *testing.T) {
	cam := New(testConfig(), 800, 600)

	cam.ZoomBy(100)
	if cam.Distance != cam.MinDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MinDistance, cam.Distance)
	}
	cam.ZoomBy(0.0001)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MaxDistance, cam.Distance)
	}
	before := cam.Distance
	cam.ZoomBy(0)
	if cam.Distance != before {
		t.Errorf("zero factor changed distance to %f", cam.Distance)
	}
}

func TestReset(t *testing.T) {
	cam := New(testConfig(), 800, 600)
	home := cam.Eye()
	cam.Orbit(1, 0.5)
	cam.ZoomBy(2)
	cam.Reset()
	if !cam.Eye().ApproxEqualThreshold(home, 1e-5) {
		t.Errorf("expected eye back at %v, got %v", home, cam.Eye())
	}
}

func TestResize(t *testing.T) {
	cam := New(testConfig(), 800, 600)
	cam.Resize(600, 600)
	if cam.Aspect() != 1 {
		t.Errorf("expected aspect 1, got %f", cam.Aspect())
	}
	cam.Resize(600, 0)
	if cam.Aspect() != 1 {
		t.Errorf("expected fallback aspect 1 for empty viewport, got %f", cam.Aspect())
	}
}

func TestBehindCamera(t *testing.T) {
	cam := New(testConfig(), 800, 600)
	if _, _, ok := cam.WorldToScreen(mgl32.Vec3{0, 0, 10}); ok {
		t.Error("point behind the eye reported visible")
	}
}

func TestGridToModel(t *testing.T) {
	tests := []struct {
		p, want mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{-1, -1, -1}},
		{mgl32.Vec3{32, 16, 8}, mgl32.Vec3{0, 0, 0}},
		{mgl32.Vec3{64, 32, 16}, mgl32.Vec3{1, 1, 1}},
	}
	for _, tt := range tests {
		if got := GridToModel(tt.p, 64, 32, 16); !got.ApproxEqual(tt.want) {
			t.Errorf("GridToModel(%v) = %v, expected %v", tt.p, got, tt.want)
		}
	}
}
