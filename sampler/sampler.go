// Package sampler implements the Monte Carlo sampling routines the path
// tracer draws bounce directions, film jitter and aperture positions from:
// a Gaussian-weighted disk for antialiasing, a cosine-weighted hemisphere
// for diffuse bounces, a cone for the area light's next-event estimation,
// a regular polygon for the camera aperture, and the GGX visible normal
// distribution for specular bounces.
package sampler

import (
	"math"

	"github.com/tessera-render/tessera/vecmath"
)

// RNG wraps the PCG-4D generator with the seeding convention every pixel
// sample uses: (x, y, sampleIndex, runID), scrambled once before the first
// draw.
type RNG struct {
	state [4]uint32
}

// NewRNG seeds an RNG for one pixel sample.
func NewRNG(x, y uint32, sampleIndex int32, runID uint32) RNG {
	r := RNG{state: [4]uint32{x, y, uint32(sampleIndex), runID}}
	r.state = vecmath.PCG4D(r.state)
	return r
}

// Next4 draws four independent uniform floats in [0, 1) and advances the
// generator's state.
func (r *RNG) Next4() vecmath.Vec4 {
	v, next := vecmath.GenerateUniformRandom4(r.state)
	r.state = next
	return v
}

// Gaussian maps a uniform sample u to a Gaussian-distributed offset with
// standard deviation sigma, via the inverse error function. epsilon clamps
// u away from the poles where InvErf diverges.
func Gaussian(u, sigma, epsilon float32) float32 {
	k := u*2 - 1
	k = vecmath.Clamp(k, -(1 - epsilon), 1-epsilon)
	return sigma * 1.41421356 * vecmath.InvErf(k)
}

// GaussianWeightedDisk samples a 2D offset whose radius is Gaussian
// distributed, used to jitter the film plane sample position for
// antialiasing.
func GaussianWeightedDisk(u vecmath.Vec2, sigma float32) vecmath.Vec2 {
	r := sqrt32(u.X)
	theta := 2 * math.Pi * float64(u.Y)
	r = Gaussian(r, sigma, 1e-6)
	s, c := math.Sincos(theta)
	return vecmath.Vec2{X: r * float32(c), Y: r * float32(s)}
}

// CosineHemisphere samples a direction in the +Z hemisphere with
// probability proportional to its cosine with the pole, the importance
// sampling distribution for a Lambertian diffuse lobe.
func CosineHemisphere(u vecmath.Vec2) vecmath.Vec3 {
	r := sqrt32(u.X)
	theta := 2 * math.Pi * float64(u.Y)
	s, c := math.Sincos(theta)
	dx, dy := r*float32(c), r*float32(s)
	z2 := 1 - (dx*dx + dy*dy)
	if z2 < 0 {
		z2 = 0
	}
	return vecmath.Vec3{X: dx, Y: dy, Z: sqrt32(z2)}
}

// CosineHemispherePDF is the density of CosineHemisphere at a direction
// dir expressed in the same frame (dir.Z is the cosine with the pole).
func CosineHemispherePDF(dir vecmath.Vec3) float32 {
	v := dir.Z * (1 / float32(math.Pi))
	if v < 0 {
		return 0
	}
	return v
}

// Cone samples a direction uniformly within a cone around dir whose half
// angle has cosine cosThetaMin, used to sample a point on an area light
// that subtends that angular radius from the shading point.
func Cone(dir vecmath.Vec3, cosThetaMin float32, u vecmath.Vec2) vecmath.Vec3 {
	cosTheta := vecmath.Mix(1, cosThetaMin, u.X)
	sinTheta := sqrt32(1 - cosTheta*cosTheta)
	phi := float64(u.Y) * 2 * math.Pi
	s, c := math.Sincos(phi)
	local := vecmath.Vec3{X: float32(c) * sinTheta, Y: float32(s) * sinTheta, Z: cosTheta}
	return vecmath.CreateTangentSpace(dir).MulVec(local)
}

// RegularPolygon samples a point inside a regular polygon with the given
// number of sides, rotated by angle, used to shape the camera's bokeh.
func RegularPolygon(u vecmath.Vec2, angle float32, sides uint32) vecmath.Vec2 {
	side := float32(math.Floor(float64(u.X * float32(sides))))
	ux := u.X * float32(sides)
	ux -= float32(math.Floor(float64(ux)))
	sideRadians := (2 * float32(math.Pi)) / float32(sides)
	a1 := float64(sideRadians*side + angle)
	a2 := float64(sideRadians*(side+1) + angle)

	s1, c1 := math.Sincos(a1)
	s2, c2 := math.Sincos(a2)
	b := vecmath.Vec2{X: float32(s1), Y: float32(c1)}
	c := vecmath.Vec2{X: float32(s2), Y: float32(c2)}

	uy := u.Y
	if ux+uy > 1 {
		ux, uy = 1-ux, 1-uy
	}
	return b.Scale(ux).Add(c.Scale(uy))
}

// GGXVNDF samples a microfacet normal (in tangent space, view pointing
// into the +Z hemisphere) from the Trowbridge-Reitz distribution of
// visible normals, following Dupuy & Benyoub's 2023 spherical-cap
// formulation. roughness below 1e-3 is treated as a perfect mirror.
func GGXVNDF(view vecmath.Vec3, roughness float32, u vecmath.Vec2) vecmath.Vec3 {
	if roughness < 1e-3 {
		return vecmath.Vec3{X: 0, Y: 0, Z: 1}
	}

	v := vecmath.Vec3{X: roughness * view.X, Y: roughness * view.Y, Z: view.Z}.Normalize()

	phi := 2 * math.Pi * float64(u.X)
	z := (1-u.Y)*(1+v.Z) - v.Z
	sinTheta := sqrt32(vecmath.Clamp(1-z*z, 0, 1))
	s, c := math.Sincos(phi)
	x := sinTheta * float32(c)
	y := sinTheta * float32(s)
	h := vecmath.Vec3{X: x, Y: y, Z: z}.Add(v)

	hz := h.Z
	if hz < 0 {
		hz = 0
	}
	return vecmath.Vec3{X: roughness * h.X, Y: roughness * h.Y, Z: hz}.Normalize()
}

func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}
