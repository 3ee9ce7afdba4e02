package soft

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// texture is a float32 texel array laid out x-fastest, then y, then z,
// with components interleaved. 2D textures have d == 1.
type texture struct {
	w, h, d int
	comps   int
	data    []float32
}

func newTexture(w, h, d, comps int) *texture {
	return &texture{
		w:     w,
		h:     h,
		d:     d,
		comps: comps,
		data:  make([]float32, w*h*d*comps),
	}
}

// unbound stands in for a sampler with no texture bound.
var unbound = newTexture(1, 1, 1, 1)

func (t *texture) index(x, y, z int) int {
	return ((z*t.h+y)*t.w + x) * t.comps
}

// texel returns the texel at the clamped integer coordinate, expanded to
// four components the way GL does for formats with fewer channels.
func (t *texture) texel(x, y, z int) mgl32.Vec4 {
	x = clampInt(x, 0, t.w-1)
	y = clampInt(y, 0, t.h-1)
	z = clampInt(z, 0, t.d-1)
	i := t.index(x, y, z)
	v := mgl32.Vec4{0, 0, 0, 1}
	copy(v[:t.comps], t.data[i:i+t.comps])
	return v
}

// trilinear samples with GL_LINEAR filtering and CLAMP_TO_EDGE wrapping.
// coord is normalized; texel centers sit at (i+0.5)/n.
func (t *texture) trilinear(coord mgl32.Vec3) mgl32.Vec4 {
	x0, tx := splitCoord(coord[0], t.w)
	y0, ty := splitCoord(coord[1], t.h)
	z0, tz := splitCoord(coord[2], t.d)

	c000 := t.texel(x0, y0, z0)
	c100 := t.texel(x0+1, y0, z0)
	c010 := t.texel(x0, y0+1, z0)
	c110 := t.texel(x0+1, y0+1, z0)
	c001 := t.texel(x0, y0, z0+1)
	c101 := t.texel(x0+1, y0, z0+1)
	c011 := t.texel(x0, y0+1, z0+1)
	c111 := t.texel(x0+1, y0+1, z0+1)

	c00 := lerp4(c000, c100, tx)
	c10 := lerp4(c010, c110, tx)
	c01 := lerp4(c001, c101, tx)
	c11 := lerp4(c011, c111, tx)
	c0 := lerp4(c00, c10, ty)
	c1 := lerp4(c01, c11, ty)
	return lerp4(c0, c1, tz)
}

func (t *texture) write(i int, v mgl32.Vec4) {
	copy(t.data[i:i+t.comps], v[:t.comps])
}

func (t *texture) fill(value float32) {
	for i := range t.data {
		t.data[i] = value
	}
}

func splitCoord(c float32, n int) (int, float32) {
	f := c*float32(n) - 0.5
	fl := math32.Floor(f)
	return int(fl), f - fl
}

func lerp4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
