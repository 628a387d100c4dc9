package bsdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessera-render/tessera/bsdf"
	"github.com/tessera-render/tessera/sampler"
	"github.com/tessera-render/tessera/vecmath"
)

func TestFresnelSchlickNormalIncidence(t *testing.T) {
	f0 := float32(0.04)
	got := bsdf.FresnelSchlick(1, f0, 1.5)
	assert.InDelta(t, float64(f0), float64(got), 1e-5)
}

func TestFresnelSchlickAttenuatedTotalInternalReflection(t *testing.T) {
	// eta > 1 with a near-grazing v.h should hit TIR and saturate to 1.
	got := bsdf.FresnelSchlickAttenuated(0.1, 0.04, 1.5, 0)
	assert.Equal(t, float32(1), got)
}

func TestDistributionPeaksAtNormalForLowRoughness(t *testing.T) {
	atNormal := bsdf.Distribution(1, 0.05)
	atGrazing := bsdf.Distribution(0.3, 0.05)
	assert.Greater(t, atNormal, atGrazing)
}

func TestSampleNeverProducesNaNAttenuation(t *testing.T) {
	m := bsdf.Material{
		Albedo:       vecmath.Vec3{X: 0.6, Y: 0.5, Z: 0.4},
		Roughness:    0.3,
		Metallic:     0.2,
		Transmission: 0,
		Eta:          1 / 1.5,
	}
	view := vecmath.Vec3{X: 0.1, Y: 0.1, Z: 0.98}.Normalize()
	r := sampler.NewRNG(13, 7, 0, 99)
	for i := 0; i < 512; i++ {
		u := r.Next4()
		_, att, pdf := bsdf.Sample(vecmath.Vec3{X: u.X, Y: u.Y, Z: u.Z}, view, m)
		assert.False(t, isNaN(att.X) || isNaN(att.Y) || isNaN(att.Z))
		assert.False(t, isNaN(pdf))
	}
}

func TestSampleMirrorReflectsAboutNormal(t *testing.T) {
	m := bsdf.Material{
		Albedo:    vecmath.Vec3{X: 1, Y: 1, Z: 1},
		Roughness: 0,
		Metallic:  1,
		Eta:       1 / 1.5,
	}
	view := vecmath.Vec3{X: 0.3, Y: 0, Z: 0.95}.Normalize()
	dir, _, pdf := bsdf.Sample(vecmath.Vec3{X: 0.1, Y: 0.1, Z: 0.1}, view, m)
	// A mirror reflection keeps the direction in the upper hemisphere and
	// reports a negative (delta-lobe) PDF.
	assert.Greater(t, dir.Z, float32(0))
	assert.Less(t, pdf, float32(0))
}

// A fully rough, non-metallic, opaque material's attenuation/pdf ratio is
// an unbiased Monte Carlo estimator of the surface's hemispherical
// reflectance: averaged over enough draws it should converge to albedo,
// regardless of how Sample splits its draws across the specular and
// diffuse lobes.
func TestSampleLambertianMeanAttenuationOverPdfConvergesToAlbedo(t *testing.T) {
	m := bsdf.Material{
		Albedo:       vecmath.Vec3{X: 0.6, Y: 0.3, Z: 0.8},
		Roughness:    1,
		Metallic:     0,
		Transmission: 0,
		Eta:          1 / 1.5,
	}
	view := vecmath.Vec3{X: 0, Y: 0, Z: 1}

	const samples = 1000000
	var sum vecmath.Vec3
	r := sampler.NewRNG(1, 2, 3, 4)
	for i := 0; i < samples; i++ {
		u := r.Next4()
		_, att, pdf := bsdf.Sample(vecmath.Vec3{X: u.X, Y: u.Y, Z: u.Z}, view, m)
		if pdf <= 0 {
			continue
		}
		sum = sum.Add(att.Scale(1 / pdf))
	}
	mean := sum.Scale(1 / float32(samples))

	assert.InDelta(t, float64(m.Albedo.X), float64(mean.X), 0.05)
	assert.InDelta(t, float64(m.Albedo.Y), float64(mean.Y), 0.05)
	assert.InDelta(t, float64(m.Albedo.Z), float64(mean.Z), 0.05)
}

func isNaN(v float32) bool { return v != v }
