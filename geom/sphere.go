package geom

import (
	"math"

	"github.com/tessera-render/tessera/vecmath"
)

// TestSphere intersects a ray (origin, unit-length dir) against a sphere at
// pos with the given radius, returning the near and far hit distances.
// Mirrors ray_sphere_intersection(): the near root can be negative when the
// origin lies inside the sphere, which callers (the atmosphere model) rely
// on.
func TestSphere(origin, dir, pos vecmath.Vec3, radius float32) (tmin, tmax float32, hit bool) {
	oc := origin.Sub(pos)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	discriminant := b*b - c
	if discriminant < 0 {
		return 0, 0, false
	}
	sq := float32(math.Sqrt(float64(discriminant)))
	return -b - sq, -b + sq, true
}
