package geom

import "github.com/tessera-render/tessera/vecmath"

// TrianglePrecompute holds the dominant-axis/shear data that lets
// TestTriangle be evaluated against many triangles for a single ray
// without repeating the axis-selection logic each time.
type TrianglePrecompute struct {
	Axis int
	S    vecmath.Vec3
}

// PrecomputeTriangle selects the ray direction's dominant axis and derives
// the shear vector S used by the Woop ray-triangle test, following the
// original ray_triangle_intersection_preprocess(): the component of dir
// with largest magnitude is swapped into z so the shear only ever divides
// by the largest-magnitude component, keeping the shear numerically
// well-conditioned.
func PrecomputeTriangle(dir vecmath.Vec3) TrianglePrecompute {
	absdir := dir.Abs()
	axis := 2
	rdir := dir
	switch {
	case absdir.X > absdir.Y && absdir.X > absdir.Z:
		axis = 0
		rdir = vecmath.Vec3{X: dir.Z, Y: dir.Y, Z: dir.X}
	case absdir.Y > absdir.Z:
		axis = 1
		rdir = vecmath.Vec3{X: dir.X, Y: dir.Z, Z: dir.Y}
	}
	s := vecmath.Vec3{X: rdir.X, Y: rdir.Y, Z: 1}.Scale(1 / rdir.Z)
	return TrianglePrecompute{Axis: axis, S: s}
}

// TriangleHit carries the barycentric/parametric intersection result.
type TriangleHit struct {
	// U, V, W are barycentric weights for pos0, pos1, pos2 respectively
	// (U=uvw.x/det maps to pos1's weight in the original's convention;
	// callers interpolating attributes should use Bary() rather than
	// reading these fields directly).
	BaryU, BaryV, T float32
	BackFace        bool
}

// TestTriangle intersects a ray (origin, with precomputed axis/shear for
// its direction) against the triangle pos0/pos1/pos2 and reports whether
// it hits, along with barycentric coordinates, hit distance and the
// back-face flag. The sign-flip logic mirrors the source exactly: the
// back-face flag starts as (determinant < 0), flips once if the shear's z
// component is negative, and flips again if the dominant axis was x or y
// (an odd permutation of the coordinate axes reverses triangle winding).
func TestTriangle(origin vecmath.Vec3, pre TrianglePrecompute, pos0, pos1, pos2 vecmath.Vec3) (TriangleHit, bool) {
	a := pos0.Sub(origin)
	b := pos1.Sub(origin)
	c := pos2.Sub(origin)

	x := vecmath.Vec3{X: a.X, Y: b.X, Z: c.X}
	y := vecmath.Vec3{X: a.Y, Y: b.Y, Z: c.Y}
	z := vecmath.Vec3{X: a.Z, Y: b.Z, Z: c.Z}

	switch pre.Axis {
	case 0:
		x, z = z, vecmath.Vec3{X: a.X, Y: b.X, Z: c.X}
	case 1:
		y, z = z, vecmath.Vec3{X: a.Y, Y: b.Y, Z: c.Y}
	}

	x = x.Sub(z.Scale(pre.S.X))
	y = y.Sub(z.Scale(pre.S.Y))

	uvw := y.Cross(x)
	det := uvw.X + uvw.Y + uvw.Z
	if det == 0 {
		return TriangleHit{}, false
	}

	t := uvw.Dot(z.Scale(pre.S.Z)) / det
	u := uvw.X / det
	v := uvw.Y / det
	w := uvw.Z / det

	backFace := det < 0
	if pre.S.Z < 0 {
		backFace = !backFace
	}
	if pre.Axis != 2 {
		backFace = !backFace
	}

	hit := t >= 0 &&
		((uvw.X >= 0 && uvw.Y >= 0 && uvw.Z >= 0) ||
			(uvw.X <= 0 && uvw.Y <= 0 && uvw.Z <= 0))

	_ = w
	return TriangleHit{BaryU: u, BaryV: v, T: t, BackFace: backFace}, hit
}
