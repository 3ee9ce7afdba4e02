package soft

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/gpu"
)

// inputs are the resolved uniforms and samplers of one pass.
type inputs struct {
	u        gpu.Uniforms
	samplers map[string]*texture
}

func (in *inputs) sampler(name string) *texture {
	if t, ok := in.samplers[name]; ok {
		return t
	}
	return unbound
}

// A sliceKernel binds a pass's inputs and returns the fragment function
// run once per texel of the target volume.
type sliceKernel func(in *inputs) func(x, y, z int) mgl32.Vec4

// A quadKernel returns the fragment function run once per viewport pixel.
type quadKernel func(in *inputs) func(x, y int) mgl32.Vec4

var sliceKernels = map[gpu.ProgramID]sliceKernel{
	gpu.ProgAdvect:           advectKernel,
	gpu.ProgBuoyancy:         buoyancyKernel,
	gpu.ProgImpulse:          impulseKernel,
	gpu.ProgJacobi:           jacobiKernel,
	gpu.ProgDivergence:       divergenceKernel,
	gpu.ProgSubtractGradient: gradientKernel,
	gpu.ProgBoundary:         boundaryKernel,
}

var quadKernels = map[gpu.ProgramID]quadKernel{
	gpu.ProgRaycast: raycastKernel,
}

// cubePrograms are drawn with the cube rasterizer.
var cubePrograms = map[gpu.ProgramID]bool{
	gpu.ProgRayCubeIntersection: true,
}

func cellCenter(x, y, z int) mgl32.Vec3 {
	return mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}
}

func advectKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	velocity := in.sampler("velocity")
	source := in.sampler("source")
	inv := in.u.Vec3("inverseSize")
	scale := in.u.Float("dt") * in.u.Float("rdx")
	dissipation := in.u.Float("dissipation")

	return func(x, y, z int) mgl32.Vec4 {
		u := velocity.texel(x, y, z).Vec3()
		pos := cellCenter(x, y, z).Sub(u.Mul(scale))
		coord := mgl32.Vec3{pos[0] * inv[0], pos[1] * inv[1], pos[2] * inv[2]}
		return source.trilinear(coord).Mul(dissipation)
	}
}

func buoyancyKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	velocity := in.sampler("velocity")
	temperature := in.sampler("temperature")
	density := in.sampler("density")
	dt := in.u.Float("dt")
	ambient := in.u.Float("ambientTemperature")
	sigma := in.u.Float("sigma")
	kappa := in.u.Float("kappa")
	dir := in.u.Vec3("dir")

	return func(x, y, z int) mgl32.Vec4 {
		v := velocity.texel(x, y, z).Vec3()
		t := temperature.texel(x, y, z)[0]
		if t > ambient {
			d := density.texel(x, y, z)[0]
			v = v.Add(dir.Mul(dt * ((t-ambient)*sigma - d*kappa)))
		}
		return v.Vec4(0)
	}
}

func impulseKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	point := in.u.Vec3("point")
	radius := in.u.Float("radius")
	fill := in.u.Float("fill")

	return func(x, y, z int) mgl32.Vec4 {
		d := point.Sub(cellCenter(x, y, z)).Len()
		if d >= radius {
			return mgl32.Vec4{}
		}
		v := fill * min((radius-d)*0.5, 1)
		return mgl32.Vec4{v, v, v, v}
	}
}

func jacobiKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	xt := in.sampler("x")
	bt := in.sampler("b")
	alpha := in.u.Float("alpha")
	rBeta := in.u.Float("rBeta")

	return func(x, y, z int) mgl32.Vec4 {
		sum := xt.texel(x-1, y, z).
			Add(xt.texel(x+1, y, z)).
			Add(xt.texel(x, y-1, z)).
			Add(xt.texel(x, y+1, z)).
			Add(xt.texel(x, y, z+1)).
			Add(xt.texel(x, y, z-1))
		return sum.Add(bt.texel(x, y, z).Mul(alpha)).Mul(rBeta)
	}
}

func divergenceKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	velocity := in.sampler("velocity")
	halfrdx := in.u.Float("halfrdx")

	return func(x, y, z int) mgl32.Vec4 {
		vW := velocity.texel(x-1, y, z)
		vE := velocity.texel(x+1, y, z)
		vS := velocity.texel(x, y-1, z)
		vN := velocity.texel(x, y+1, z)
		vD := velocity.texel(x, y, z-1)
		vU := velocity.texel(x, y, z+1)
		d := halfrdx * (vE[0] - vW[0] + vN[1] - vS[1] + vU[2] - vD[2])
		return mgl32.Vec4{d, d, d, d}
	}
}

func gradientKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	velocity := in.sampler("velocity")
	pressure := in.sampler("pressure")
	scale := in.u.Float("gradientScale")

	return func(x, y, z int) mgl32.Vec4 {
		grad := mgl32.Vec3{
			pressure.texel(x+1, y, z)[0] - pressure.texel(x-1, y, z)[0],
			pressure.texel(x, y+1, z)[0] - pressure.texel(x, y-1, z)[0],
			pressure.texel(x, y, z+1)[0] - pressure.texel(x, y, z-1)[0],
		}
		v := velocity.texel(x, y, z).Vec3()
		return v.Sub(grad.Mul(scale)).Vec4(0)
	}
}

func boundaryKernel(in *inputs) func(x, y, z int) mgl32.Vec4 {
	source := in.sampler("source")
	scale := in.u.Float("scale")

	return func(x, y, z int) mgl32.Vec4 {
		ox := inward(x, source.w)
		oy := inward(y, source.h)
		oz := inward(z, source.d)
		if ox == 0 && oy == 0 && oz == 0 {
			return source.texel(x, y, z)
		}
		return source.texel(x+ox, y+oy, z+oz).Mul(scale)
	}
}

// inward is the offset from a boundary cell to its interior neighbour
// along one axis, or 0 for interior cells.
func inward(i, n int) int {
	switch {
	case i == 0:
		return 1
	case i == n-1:
		return -1
	default:
		return 0
	}
}
