package soft

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
)

// clipVertex is a cube vertex after the vertex stage.
type clipVertex struct {
	clip mgl32.Vec4
	attr mgl32.Vec3
}

// screenTriangle is a triangle in window coordinates, wound
// counter-clockwise, ready for scan conversion.
type screenTriangle struct {
	v     [3][2]float64
	invW  [3]float64
	attrW [3]mgl32.Vec3 // attr / w for perspective-correct interpolation
	area  float64
	front bool
	minY  int
	maxY  int
	minX  int
	maxX  int
}

// cubeFragment is the fragment stage of the intersection program.
type cubeFragment func(x, y int, pos mgl32.Vec3, front bool)

// setupCube runs the vertex stage over the cube and returns the
// triangles that survive near-plane clipping and culling.
func setupCube(mvp mgl32.Mat4, vp gpu.Viewport, cull bool) []screenTriangle {
	var verts [8]clipVertex
	for i, p := range gpu.CubeVertices {
		pos := mgl32.Vec3{p[0], p[1], p[2]}
		verts[i] = clipVertex{clip: mvp.Mul4x1(pos.Vec4(1)), attr: pos}
	}

	var tris []screenTriangle
	for i := 0; i < len(gpu.CubeIndices); i += 3 {
		poly := clipNear([]clipVertex{
			verts[gpu.CubeIndices[i]],
			verts[gpu.CubeIndices[i+1]],
			verts[gpu.CubeIndices[i+2]],
		})
		for j := 1; j+1 < len(poly); j++ {
			t, ok := toScreen(poly[0], poly[j], poly[j+1], vp)
			if !ok || (cull && !t.front) {
				continue
			}
			tris = append(tris, t)
		}
	}
	return tris
}

// clipNear clips a polygon against the near plane z >= -w.
func clipNear(poly []clipVertex) []clipVertex {
	dist := func(v clipVertex) float32 { return v.clip[2] + v.clip[3] }

	out := make([]clipVertex, 0, len(poly)+1)
	for i, cur := range poly {
		next := poly[(i+1)%len(poly)]
		dc, dn := dist(cur), dist(next)
		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			out = append(out, clipVertex{
				clip: cur.clip.Add(next.clip.Sub(cur.clip).Mul(t)),
				attr: cur.attr.Add(next.attr.Sub(cur.attr).Mul(t)),
			})
		}
	}
	return out
}

// toScreen maps a clipped triangle to window coordinates. Degenerate
// triangles are rejected.
func toScreen(a, b, c clipVertex, vp gpu.Viewport) (screenTriangle, bool) {
	var t screenTriangle
	in := [3]clipVertex{a, b, c}
	for i, v := range in {
		w := float64(v.clip[3])
		if w <= 0 {
			return t, false
		}
		t.invW[i] = 1 / w
		t.v[i][0] = (float64(v.clip[0])/w + 1) * 0.5 * float64(vp.Width)
		t.v[i][1] = (float64(v.clip[1])/w + 1) * 0.5 * float64(vp.Height)
		t.attrW[i] = v.attr.Mul(float32(t.invW[i]))
	}

	t.area = orient(t.v[0], t.v[1], t.v[2])
	if t.area == 0 {
		return t, false
	}
	t.front = t.area > 0
	if !t.front {
		t.v[1], t.v[2] = t.v[2], t.v[1]
		t.invW[1], t.invW[2] = t.invW[2], t.invW[1]
		t.attrW[1], t.attrW[2] = t.attrW[2], t.attrW[1]
		t.area = -t.area
	}

	minX, maxX := t.v[0][0], t.v[0][0]
	minY, maxY := t.v[0][1], t.v[0][1]
	for _, v := range t.v[1:] {
		minX, maxX = min(minX, v[0]), max(maxX, v[0])
		minY, maxY = min(minY, v[1]), max(maxY, v[1])
	}
	t.minX = clampInt(int(minX)-1, 0, vp.Width-1)
	t.maxX = clampInt(int(maxX)+1, 0, vp.Width-1)
	t.minY = clampInt(int(minY)-1, 0, vp.Height-1)
	t.maxY = clampInt(int(maxY)+1, 0, vp.Height-1)
	return t, true
}

// rasterizeRows scan converts tris over rows [y0, y1) and calls frag for
// each covered pixel center. Shared edges follow the top-left rule so
// adjacent triangles never both cover a pixel.
func rasterizeRows(tris []screenTriangle, y0, y1 int, frag cubeFragment) {
	for i := range tris {
		t := &tris[i]
		rowStart := max(y0, t.minY)
		rowEnd := min(y1-1, t.maxY)
		for y := rowStart; y <= rowEnd; y++ {
			py := float64(y) + 0.5
			for x := t.minX; x <= t.maxX; x++ {
				p := [2]float64{float64(x) + 0.5, py}
				w0 := edge(t.v[1], t.v[2], p)
				w1 := edge(t.v[2], t.v[0], p)
				w2 := edge(t.v[0], t.v[1], p)
				if !inside(w0, t.v[1], t.v[2]) || !inside(w1, t.v[2], t.v[0]) || !inside(w2, t.v[0], t.v[1]) {
					continue
				}
				l0, l1, l2 := w0/t.area, w1/t.area, w2/t.area
				invW := l0*t.invW[0] + l1*t.invW[1] + l2*t.invW[2]
				pos := t.attrW[0].Mul(float32(l0)).
					Add(t.attrW[1].Mul(float32(l1))).
					Add(t.attrW[2].Mul(float32(l2))).
					Mul(float32(1 / invW))
				frag(x, y, pos, t.front)
			}
		}
	}
}

func orient(a, b, p [2]float64) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// edge evaluates the edge function with the endpoints in a canonical
// order, so two triangles sharing an edge get exactly opposite values.
func edge(a, b, p [2]float64) float64 {
	if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
		return -orient(b, a, p)
	}
	return orient(a, b, p)
}

func inside(w float64, a, b [2]float64) bool {
	if w > 0 {
		return true
	}
	if w < 0 {
		return false
	}
	return topLeft(a, b)
}

// topLeft reports whether edge a->b of a counter-clockwise triangle in
// y-up window coordinates is a top or left edge.
func topLeft(a, b [2]float64) bool {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	return dy < 0 || (dy == 0 && dx < 0)
}
