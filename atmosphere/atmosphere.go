// Package atmosphere implements a Nishita-style analytic sky model: a
// single Earth-sized sphere of exponentially-falling-off Rayleigh and Mie
// scattering media, ray-marched along the camera and shadow rays to
// produce both transmittance (for attenuating whatever is seen through the
// atmosphere) and in-scattered light (the sky's own contribution).
package atmosphere

import (
	"math"

	"github.com/tessera-render/tessera/config"
	"github.com/tessera-render/tessera/geom"
	"github.com/tessera-render/tessera/sampler"
	"github.com/tessera-render/tessera/vecmath"
)

func earthOrigin(p config.Atmosphere) vecmath.Vec3 {
	return vecmath.Vec3{X: 0, Y: -p.EarthRadius, Z: 0}
}

// Attenuation computes the atmosphere's transmittance along a ray from pos
// in direction view, up to tmax (or to where the ray exits the atmosphere
// shell if tmax is negative). jitter offsets the ray-march sample points to
// turn banding into noise across samples.
func Attenuation(p config.Atmosphere, jitter float32, iterations int, pos, view vecmath.Vec3, tmax float32) vecmath.Vec3 {
	attenuation := vecmath.Vec3{X: 1, Y: 1, Z: 1}

	tmin, atmax, hit := geom.TestSphere(pos, view, earthOrigin(p), p.EarthRadius+p.Height)
	if !hit {
		return attenuation
	}
	tmin = max32(tmin, 0)
	if tmax < 0 {
		tmax = 1e9
	}
	tmax = min32(atmax, tmax)

	segment := (tmax - tmin) / float32(iterations)
	var rayleighDepth, mieDepth float32
	shadowed := false

	for i := 0; i < iterations; i++ {
		t := segment * (jitter + float32(i))
		height := pos.Add(view.Scale(t)).Sub(earthOrigin(p)).Length() - p.EarthRadius
		rayleighDepth += exp32(-height / p.RayleighScaleHeight)
		mieDepth += exp32(-height / p.MieScaleHeight)
		if height < 0 {
			shadowed = true
		}
	}

	tau := p.RayleighCoefficient.Scale(rayleighDepth).Add(p.MieCoefficient.Scale(mieDepth)).Scale(segment)
	attenuation = vecmath.Vec3{X: exp32(-tau.X), Y: exp32(-tau.Y), Z: exp32(-tau.Z)}
	if shadowed {
		attenuation = vecmath.Vec3{}
	}
	return attenuation
}

// Light is the directional light source the scattering model integrates
// against (the same cone light NEE samples toward).
type Light struct {
	Direction vecmath.Vec3
	Color     vecmath.Vec3
}

// Scattering ray-marches the atmosphere along a primary ray and returns
// both the atmosphere's transmittance and the light it in-scatters toward
// the viewer from the given directional light. rng is advanced to draw the
// ray-march jitter. A primary ray shorter than 1km is assumed to pass
// through negligible atmosphere and returns unit transmittance / zero
// in-scatter without ray marching at all.
func Scattering(p config.Atmosphere, rng *sampler.RNG, light Light, pos, view vecmath.Vec3, tmax float32) (attenuation, inScatter vecmath.Vec3) {
	attenuation = vecmath.Vec3{X: 1, Y: 1, Z: 1}
	if tmax > 0 && tmax < 1e3 {
		return attenuation, vecmath.Vec3{}
	}

	tmin, atmax, hit := geom.TestSphere(pos, view, earthOrigin(p), p.EarthRadius+p.Height)
	if !hit {
		return attenuation, vecmath.Vec3{}
	}
	tmin = max32(tmin, 0)
	if tmax < 0 {
		tmax = 1e9
	}
	tmax = min32(atmax, tmax)

	interval := tmax - tmin
	segment := interval / float32(p.PrimaryIterations)
	jitter := rng.Next4()

	mu := view.Dot(light.Direction)
	rayleighPhase := 3.0 / (16.0 * float32(math.Pi)) * (1 + mu*mu)
	g := p.MieAnisotropy
	miePhase := 3.0 / (8.0 * float32(math.Pi)) * (1 - g*g) * (1 + mu*mu) /
		((2 + g*g) * pow32(1+g*g-2*g*mu, 1.5))

	var rayleighDepth, mieDepth float32
	var rayleighSum, mieSum vecmath.Vec3

	for i := 0; i < p.PrimaryIterations; i++ {
		t := segment * (jitter.X + float32(i))
		pt := pos.Add(view.Scale(t))

		ltmin, ltmax, _ := geom.TestSphere(pt, light.Direction, earthOrigin(p), p.EarthRadius+p.Height)
		lightSegment := (ltmax - ltmin) / float32(p.SecondaryIterations)
		var lightRayleighDepth, lightMieDepth float32
		lightShadowed := false

		for j := 0; j < p.SecondaryIterations; j++ {
			lt := lightSegment * (jitter.Y + float32(j))
			height := pt.Add(light.Direction.Scale(lt)).Sub(earthOrigin(p)).Length() - p.EarthRadius
			lightRayleighDepth += exp32(-height / p.RayleighScaleHeight)
			lightMieDepth += exp32(-height / p.MieScaleHeight)
			if height < 0 {
				lightShadowed = true
			}
		}

		height := max32(pt.Sub(earthOrigin(p)).Length()-p.EarthRadius, 0)
		rayleighDensity := exp32(-height/p.RayleighScaleHeight) * segment
		mieDensity := exp32(-height/p.MieScaleHeight) * segment

		rayleighDepth += rayleighDensity
		mieDepth += mieDensity

		tau := p.RayleighCoefficient.Scale(lightRayleighDepth*lightSegment + rayleighDepth).
			Add(p.MieCoefficient.Scale(lightMieDepth*lightSegment + mieDepth))

		localAttenuation := vecmath.Vec3{X: exp32(-tau.X), Y: exp32(-tau.Y), Z: exp32(-tau.Z)}
		if lightShadowed {
			localAttenuation = vecmath.Vec3{}
		}

		rayleighSum = rayleighSum.Add(localAttenuation.Scale(rayleighDensity))
		mieSum = mieSum.Add(localAttenuation.Scale(mieDensity))
	}

	tau := p.RayleighCoefficient.Scale(rayleighDepth).Add(p.MieCoefficient.Scale(mieDepth))
	attenuation = vecmath.Vec3{X: exp32(-tau.X), Y: exp32(-tau.Y), Z: exp32(-tau.Z)}

	inScatter = rayleighSum.Scale(rayleighPhase).Mul(p.RayleighCoefficient).
		Add(mieSum.Scale(miePhase).Mul(p.MieCoefficient)).
		Mul(light.Color).Scale(4)

	return attenuation, inScatter
}

func exp32(v float32) float32 { return float32(math.Exp(float64(v))) }
func pow32(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
