// Package geom implements the ray-primitive intersection routines the BVH
// builder and ray-query engine are built on: axis-aligned bounding box
// slab tests, Woop-style ray-triangle intersection, and ray-sphere
// intersection.
package geom

import "github.com/tessera-render/tessera/vecmath"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max vecmath.Vec3
}

// EmptyAABB returns a degenerate box that Grow will expand from nothing.
func EmptyAABB() AABB {
	const inf = 3.402823466e+38
	return AABB{
		Min: vecmath.Vec3{X: inf, Y: inf, Z: inf},
		Max: vecmath.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Grow expands b to also contain p.
func (b AABB) Grow(p vecmath.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Centroid returns the midpoint of the box.
func (b AABB) Centroid() vecmath.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfArea returns sx*sy + sy*sz + sz*sx for the box extents, the proxy the
// SAH cost function is built on (exactly half the box's surface area).
func (b AABB) HalfArea() float32 {
	s := b.Max.Sub(b.Min)
	return s.X*s.Y + s.Y*s.Z + s.Z*s.X
}

// TransformedCorners returns the 8 corners of b transformed by m, used to
// rebuild a world-space AABB around a transformed instance.
func (b AABB) TransformedCorners(m vecmath.Mat4) [8]vecmath.Vec3 {
	return [8]vecmath.Vec3{
		m.MulPoint(vecmath.Vec3{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z}),
		m.MulPoint(vecmath.Vec3{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z}),
	}
}

// Transform returns the AABB tightly bounding b after transformation by m.
func (b AABB) Transform(m vecmath.Mat4) AABB {
	out := EmptyAABB()
	for _, c := range b.TransformedCorners(m) {
		out = out.Grow(c)
	}
	return out
}

// SlabTest intersects a ray (origin + t*invDir, invDir = 1/dir with 1e38
// sentinel components for exact zeros) against b and returns whether the
// ray enters the box within [tmin, tmax], narrowed to the box's own
// entry/exit distances.
func (b AABB) SlabTest(origin, invDir vecmath.Vec3, tmin, tmax float32) (near, far float32, hit bool) {
	t0 := b.Min.Sub(origin).Mul(invDir)
	t1 := b.Max.Sub(origin).Mul(invDir)
	tsmaller := t0.Min(t1)
	tbigger := t0.Max(t1)

	near = max32(max32(tsmaller.X, tsmaller.Y), max32(tsmaller.Z, tmin))
	far = min32(min32(tbigger.X, tbigger.Y), min32(tbigger.Z, tmax))

	hit = near <= far && far > tmin && near < tmax
	return near, far, hit
}

// SafeInvDir returns 1/dir component-wise, substituting a 1e38 sentinel
// (large but finite in float32) for any component that is exactly zero so
// that the slab test's multiplications never produce a NaN from 0 * Inf.
func SafeInvDir(dir vecmath.Vec3) vecmath.Vec3 {
	const sentinel float32 = 1e38
	inv := func(v float32) float32 {
		if v == 0 {
			return sentinel
		}
		return 1 / v
	}
	return vecmath.Vec3{X: inv(dir.X), Y: inv(dir.Y), Z: inv(dir.Z)}
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
