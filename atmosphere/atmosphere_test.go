package atmosphere_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-render/tessera/atmosphere"
	"github.com/tessera-render/tessera/config"
	"github.com/tessera-render/tessera/sampler"
	"github.com/tessera-render/tessera/vecmath"
)

func TestAttenuationIsIdentityWithoutAtmosphereHit(t *testing.T) {
	p := config.DefaultAtmosphere()
	// Looking straight up from well above the atmosphere shell, away
	// from Earth, never intersects it.
	pos := vecmath.Vec3{X: 0, Y: p.EarthRadius + p.Height*10, Z: 0}
	view := vecmath.Vec3{X: 0, Y: 1, Z: 0}
	att := atmosphere.Attenuation(p, 0.5, p.PrimaryIterations, pos, view, -1)
	assert.Equal(t, vecmath.Vec3{X: 1, Y: 1, Z: 1}, att)
}

func TestAttenuationDarkensLookingThroughAtmosphere(t *testing.T) {
	p := config.DefaultAtmosphere()
	pos := vecmath.Vec3{X: 0, Y: 100, Z: 0}
	view := vecmath.Vec3{X: 1, Y: 0, Z: 0}
	att := atmosphere.Attenuation(p, 0.5, p.PrimaryIterations, pos, view, 2e6)
	require.Less(t, att.X, float32(1))
	require.Less(t, att.Y, float32(1))
	require.Less(t, att.Z, float32(1))
}

func TestScatteringNearFieldIsNegligible(t *testing.T) {
	p := config.DefaultAtmosphere()
	rng := sampler.NewRNG(0, 0, 0, 1)
	light := atmosphere.Light{Direction: vecmath.Vec3{X: 0, Y: 1, Z: 0}, Color: vecmath.Vec3{X: 1, Y: 1, Z: 1}}
	att, scatter := atmosphere.Scattering(p, &rng, light, vecmath.Vec3{X: 0, Y: 10, Z: 0}, vecmath.Vec3{X: 0, Y: 1, Z: 0}, 500)
	assert.Equal(t, vecmath.Vec3{X: 1, Y: 1, Z: 1}, att)
	assert.Equal(t, vecmath.Vec3{}, scatter)
}

func TestScatteringAtSunriseRedExceedsBlue(t *testing.T) {
	p := config.DefaultAtmosphere()
	rng := sampler.NewRNG(1, 1, 0, 1)
	// A near-horizontal view ray with a near-horizontal light, the classic
	// sunrise/sunset geometry, should exhibit Rayleigh scattering's
	// reddening: blue scatters out of the path more than red.
	pos := vecmath.Vec3{X: 0, Y: 100, Z: 0}
	view := vecmath.Vec3{X: 1, Y: 0.001, Z: 0}.Normalize()
	light := atmosphere.Light{
		Direction: vecmath.Vec3{X: 1, Y: 0.002, Z: 0}.Normalize(),
		Color:     vecmath.Vec3{X: 1, Y: 1, Z: 1},
	}
	_, scatter := atmosphere.Scattering(p, &rng, light, pos, view, 2e6)
	assert.Greater(t, scatter.X, scatter.Z)
}
