package soft

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	materialSmoke = 0
	materialFire  = 1
)

type raycastParams struct {
	material        int32
	stepSize        float32
	absorption      float32
	alphaCutoff     float32
	lightSteps      int32
	lightStepSize   float32
	lightDir        mgl32.Vec3
	ambientLight    float32
	smokeColor      mgl32.Vec3
	fireTemperature float32
	ambient         float32
}

func raycastKernel(in *inputs) func(x, y int) mgl32.Vec4 {
	start := in.sampler("rayStart")
	stop := in.sampler("rayStop")
	density := in.sampler("density")
	temperature := in.sampler("temperature")
	p := raycastParams{
		material:        in.u.Int("material"),
		stepSize:        in.u.Float("stepSize"),
		absorption:      in.u.Float("absorption"),
		alphaCutoff:     in.u.Float("alphaCutoff"),
		lightSteps:      in.u.Int("lightSteps"),
		lightStepSize:   in.u.Float("lightStepSize"),
		lightDir:        in.u.Vec3("lightDir"),
		ambientLight:    in.u.Float("ambientLight"),
		smokeColor:      in.u.Vec3("smokeColor"),
		fireTemperature: in.u.Float("fireTemperature"),
		ambient:         in.u.Float("ambientTemperature"),
	}

	return func(x, y int) mgl32.Vec4 {
		entry := start.texel(x, y, 0)
		exit := stop.texel(x, y, 0)
		if entry[3] == 0 || exit[3] == 0 || p.stepSize <= 0 {
			return mgl32.Vec4{}
		}
		return p.march(entry.Vec3(), exit.Vec3(), density, temperature)
	}
}

// march composites front to back from entry to exit.
func (p *raycastParams) march(entry, exit mgl32.Vec3, density, temperature *texture) mgl32.Vec4 {
	ray := exit.Sub(entry)
	length := ray.Len()
	if length < 1e-6 {
		return mgl32.Vec4{}
	}
	dir := ray.Mul(1 / length)
	n := int(length/p.stepSize) + 1

	pos := entry
	transmittance := float32(1)
	var color mgl32.Vec3
	for i := 0; i < n; i++ {
		uvw := domainToTexcoord(pos)
		d := density.trilinear(uvw)[0]

		var smokeA float32
		var smokeC mgl32.Vec3
		if p.material != materialFire && d > 0 {
			smokeA = 1 - math32.Exp(-d*p.absorption*p.stepSize)
			lit := p.lightTransmittance(pos, density)
			smokeC = p.smokeColor.Mul(p.ambientLight + (1-p.ambientLight)*lit)
		}

		var fireA float32
		var fireC mgl32.Vec3
		// Fire is emission from hot smoke: no density, no flame.
		if p.material != materialSmoke && d > 0 {
			heat := clampf((temperature.trilinear(uvw)[0]-p.ambient)/p.fireTemperature, 0, 1)
			if heat > 0 {
				fireA = 1 - math32.Exp(-heat*d*p.absorption*p.stepSize)
				fireC = fireRamp(heat)
			}
		}

		a := 1 - (1-smokeA)*(1-fireA)
		if a > 0 {
			c := smokeC.Mul(smokeA).Add(fireC.Mul(fireA)).Mul(1 / (smokeA + fireA))
			color = color.Add(c.Mul(transmittance * a))
			transmittance *= 1 - a
			if 1-transmittance >= p.alphaCutoff {
				break
			}
		}
		pos = pos.Add(dir.Mul(p.stepSize))
	}

	alpha := 1 - transmittance
	if alpha <= 0 {
		return mgl32.Vec4{}
	}
	return color.Mul(1 / alpha).Vec4(alpha)
}

func (p *raycastParams) lightTransmittance(pos mgl32.Vec3, density *texture) float32 {
	t := float32(1)
	for j := int32(0); j < p.lightSteps; j++ {
		pos = pos.Add(p.lightDir.Mul(p.lightStepSize))
		if math32.Abs(pos[0]) > 1 || math32.Abs(pos[1]) > 1 || math32.Abs(pos[2]) > 1 {
			break
		}
		d := density.trilinear(domainToTexcoord(pos))[0]
		t *= math32.Exp(-d * p.absorption * p.lightStepSize)
	}
	return t
}

func domainToTexcoord(pos mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{(pos[0] + 1) * 0.5, (pos[1] + 1) * 0.5, (pos[2] + 1) * 0.5}
}

func fireRamp(h float32) mgl32.Vec3 {
	return mgl32.Vec3{clampf(3*h, 0, 1), clampf(3*h-1, 0, 1), clampf(3*h-2, 0, 1)}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
