// Package bsdf implements the metallic-dielectric microfacet surface model
// the path tracer shades every hit with: a Trowbridge-Reitz (GGX)
// distribution and masking-shadowing term, a Schlick Fresnel approximation
// attenuated by roughness, and a single lobe blending diffuse, specular
// reflection and specular transmission by the surface's metallic and
// transmission parameters.
//
// All directions here are in the local shading frame, where the Z axis is
// the surface normal.
package bsdf

import (
	"math"

	"github.com/tessera-render/tessera/sampler"
	"github.com/tessera-render/tessera/vecmath"
)

// Material holds the shading parameters of one surface point. Roughness is
// already perceptually-remapped (callers square a user-facing roughness
// before storing it here, matching mat.x*mat.x in the source).
type Material struct {
	Albedo       vecmath.Vec3
	Roughness    float32
	Metallic     float32
	Transmission float32
	// Eta is the ratio of the incident medium's IOR to the transmitted
	// medium's IOR, already flipped for back faces by the caller.
	Eta float32
}

// FresnelSchlickAttenuated evaluates the Schlick Fresnel approximation,
// attenuated so that at grazing angles through a rough surface the
// reflectance doesn't overshoot 1. When eta > 1 (exiting a denser medium)
// it also accounts for total internal reflection.
func FresnelSchlickAttenuated(vDotH, f0, eta, roughness float32) float32 {
	if eta > 1 {
		sinTheta2 := eta * eta * (1 - vDotH*vDotH)
		if sinTheta2 >= 1 {
			return 1
		}
		vDotH = sqrt32(1 - sinTheta2)
	}
	maxTerm := f0
	if 1-roughness > f0 {
		maxTerm = 1 - roughness
	}
	base := 1 - vDotH
	if base < 0 {
		base = 0
	}
	return f0 + (maxTerm-f0)*pow32(base, 5)
}

// FresnelSchlick is FresnelSchlickAttenuated with no roughness attenuation.
func FresnelSchlick(vDotH, f0, eta float32) float32 {
	return FresnelSchlickAttenuated(vDotH, f0, eta, 0)
}

// Distribution evaluates the Trowbridge-Reitz (GGX) normal distribution
// function for a microfacet normal whose cosine with the shading normal is
// hDotN, given roughness a (already alpha-remapped, i.e. a = roughness^2).
func Distribution(hDotN, a float32) float32 {
	a2 := a * a
	denom := hDotN*hDotN*(a2-1) + 1
	d := float32(math.Pi) * denom * denom
	if d < 1e-10 {
		d = 1e-10
	}
	return a2 / d
}

// MaskingShadowing evaluates the height-correlated Smith G2 term for both
// the light and view directions.
func MaskingShadowing(lDotN, lDotH, vDotN, vDotH, a float32) float32 {
	if vDotN*vDotH < 0 || lDotN*lDotH < 0 {
		return 0
	}
	return 0.5 / (
		abs32(vDotN)*sqrt32(lDotN*lDotN-a*a*lDotN*lDotN+a*a) +
			abs32(lDotN)*sqrt32(vDotN*vDotN-a*a*vDotN*vDotN+a*a))
}

// Masking evaluates the single-direction Smith G1 term for the view
// direction alone, used as the sampling-PDF normalization for GGX VNDF
// importance sampling.
func Masking(vDotN, vDotH, a float32) float32 {
	if vDotN*vDotH < 0 {
		return 0
	}
	return 2 * vDotN / (vDotN + sqrt32(vDotN*vDotN*(1-a*a)+a*a))
}

// lobePDFs carries the three unmixed lobe PDFs core() derives, so callers
// can blend them with whatever lobe-selection probabilities apply.
type lobePDFs struct {
	reflection, diffuse, transmission float32
}

// core evaluates the unweighted BRDF/BTDF contribution for one lobe
// configuration (chosen by which side of the surface light and view fall
// on) and fills in that lobe's raw PDFs.
func core(light, h, view vecmath.Vec3, m Material, f0, distribution float32) (vecmath.Vec3, lobePDFs) {
	brdf := light.Z > 0
	lDotN := light.Z
	vDotN := view.Z
	vDotH := view.Dot(h)
	lDotH := light.Dot(h)

	fresnel := FresnelSchlick(vDotH, f0, m.Eta)
	geometry := MaskingShadowing(lDotN, lDotH, vDotN, vDotH, m.Roughness)
	g1 := Masking(vDotN, vDotH, m.Roughness)

	var color vecmath.Vec3
	var pdfs lobePDFs

	if brdf {
		specular := m.Albedo.Scale(m.Metallic).Add(vecmath.Vec3{X: fresnel, Y: fresnel, Z: fresnel}.Scale(1 - m.Metallic))
		color = specular.Scale(geometry * distribution)
		diffuseColor := m.Albedo.Scale((1 - fresnel) * (1 - m.Metallic) * (1 - m.Transmission) / float32(math.Pi))
		color = color.Add(diffuseColor)

		pdfs.reflection = g1 * distribution / (4 * view.Z)
		pdfs.diffuse = sampler.CosineHemispherePDF(light)
	} else {
		denom := m.Eta*vDotH + lDotH
		coeff := m.Transmission * abs32(vDotH*lDotH) * (1 - fresnel) * 4 * geometry * distribution / (denom * denom)
		color = m.Albedo.Scale(coeff)

		pdfs.transmission = abs32(vDotH*lDotH) * g1 * distribution / (abs32(view.Z) * denom * denom)
	}

	return color.Scale(abs32(lDotN)), pdfs
}

// f0Of returns the normal-incidence Fresnel reflectance for index-of-
// refraction ratio eta.
func f0Of(eta float32) float32 {
	f0 := (1 - eta) / (1 + eta)
	return f0 * f0
}

func lobeProbabilities(view vecmath.Vec3, m Material, f0 float32) (reflection, transmission, diffuse float32) {
	reflection = vecmath.Mix(1, FresnelSchlickAttenuated(view.Z, f0, m.Eta, m.Roughness), m.Albedo.Luminance()*(1-m.Metallic))
	transmission = (1 - reflection) * m.Transmission
	diffuse = (1 - reflection) * (1 - m.Transmission)
	return
}

// Eval evaluates the full BSDF (all lobes blended by their selection
// probabilities) for a fixed light and view direction, returning the
// attenuation and the MIS-ready PDF for that direction under BSDF
// sampling.
func Eval(light, view vecmath.Vec3, m Material) (vecmath.Vec3, float32) {
	var h vecmath.Vec3
	if light.Z > 0 {
		h = view.Add(light).Normalize()
	} else {
		h = view.Scale(m.Eta).Add(light).Normalize().Scale(vecmath.Sign(m.Eta - 1))
	}
	distribution := Distribution(h.Z, m.Roughness)

	f0 := f0Of(m.Eta)
	reflectionProb, transmissionProb, diffuseProb := lobeProbabilities(view, m, f0)

	d := distribution
	if m.Roughness < 1e-3 {
		d = 0
	}
	attenuation, pdfs := core(light, h, view, m, f0, d)
	pdf := pdfs.reflection*reflectionProb + pdfs.diffuse*diffuseProb + pdfs.transmission*transmissionProb
	return attenuation, pdf
}

// Sample draws a bounce direction and its attenuation/PDF from the BSDF
// given a view direction and three uniform random numbers. A negative PDF
// signals a delta (perfectly specular) lobe was taken, which callers use
// to skip MIS weighting against NEE on that bounce, exactly as the source
// does.
func Sample(u vecmath.Vec3, view vecmath.Vec3, m Material) (dir vecmath.Vec3, attenuation vecmath.Vec3, pdf float32) {
	h := sampler.GGXVNDF(view, m.Roughness, vecmath.Vec2{X: u.X, Y: u.Y})

	f0 := f0Of(m.Eta)
	reflectionProb, transmissionProb, diffuseProb := lobeProbabilities(view, m, f0)

	diffuse := false
	bad := false
	uz := u.Z

	switch {
	case uz-reflectionProb <= 0:
		dir = vecmath.Reflect(view.Neg(), h)
		bad = dir.Z <= 0
	case uz-reflectionProb-transmissionProb <= 0:
		dir = vecmath.Refract(view.Neg(), h, m.Eta)
		bad = dir.Z >= 0
	default:
		dir = sampler.CosineHemisphere(vecmath.Vec2{X: u.X, Y: u.Y})
		h = dir.Add(view).Normalize()
		diffuse = true
		bad = dir.Z == 0
	}

	if bad {
		return vecmath.Vec3{X: 0, Y: 0, Z: 1}, vecmath.Vec3{}, 1
	}

	distribution := Distribution(h.Z, m.Roughness)
	if m.Roughness < 1e-3 {
		if diffuse {
			distribution = 0
		} else {
			distribution = abs32(4 * dir.Z * view.Z)
		}
	}

	attenuation, pdfs := core(dir, h, view, m, f0, distribution)
	pdf = pdfs.reflection*reflectionProb + pdfs.transmission*transmissionProb

	if m.Roughness < 1e-3 && !diffuse {
		pdf = -pdf
	} else {
		pdf += pdfs.diffuse * diffuseProb
	}

	return dir, attenuation, pdf
}

func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func pow32(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}
