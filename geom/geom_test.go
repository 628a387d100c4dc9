package geom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-render/tessera/geom"
	"github.com/tessera-render/tessera/vecmath"
)

func unitCube() geom.AABB {
	return geom.AABB{
		Min: vecmath.Vec3{X: -1, Y: -1, Z: -1},
		Max: vecmath.Vec3{X: 1, Y: 1, Z: 1},
	}
}

func TestAABBSlabTestHitsThroughCenter(t *testing.T) {
	box := unitCube()
	origin := vecmath.Vec3{X: 0, Y: 0, Z: -5}
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	inv := geom.SafeInvDir(dir)

	near, far, hit := box.SlabTest(origin, inv, 0, 1e9)
	require.True(t, hit)
	assert.InDelta(t, 4.0, float64(near), 1e-5)
	assert.InDelta(t, 6.0, float64(far), 1e-5)
}

func TestAABBSlabTestMissesThroughCorner(t *testing.T) {
	box := unitCube()
	origin := vecmath.Vec3{X: 5, Y: 5, Z: -5}
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	inv := geom.SafeInvDir(dir)

	_, _, hit := box.SlabTest(origin, inv, 0, 1e9)
	assert.False(t, hit)
}

func TestSafeInvDirHandlesZeroComponent(t *testing.T) {
	inv := geom.SafeInvDir(vecmath.Vec3{X: 0, Y: 2, Z: 0})
	assert.Equal(t, float32(1e38), inv.X)
	assert.InDelta(t, 0.5, float64(inv.Y), 1e-6)
	assert.Equal(t, float32(1e38), inv.Z)
}

func TestTestTriangleFrontFaceHit(t *testing.T) {
	origin := vecmath.Vec3{X: 0, Y: 0, Z: -5}
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	pre := geom.PrecomputeTriangle(dir)

	p0 := vecmath.Vec3{X: -1, Y: -1, Z: 0}
	p1 := vecmath.Vec3{X: 0, Y: 1, Z: 0}
	p2 := vecmath.Vec3{X: 1, Y: -1, Z: 0}

	hit, ok := geom.TestTriangle(origin, pre, p0, p1, p2)
	require.True(t, ok)
	assert.InDelta(t, 5.0, float64(hit.T), 1e-5)
}

func TestTestTriangleMissesOutsideEdges(t *testing.T) {
	origin := vecmath.Vec3{X: 5, Y: 5, Z: -5}
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	pre := geom.PrecomputeTriangle(dir)

	p0 := vecmath.Vec3{X: -1, Y: -1, Z: 0}
	p1 := vecmath.Vec3{X: 1, Y: -1, Z: 0}
	p2 := vecmath.Vec3{X: 0, Y: 1, Z: 0}

	_, ok := geom.TestTriangle(origin, pre, p0, p1, p2)
	assert.False(t, ok)
}

func TestTestTriangleBackFaceFlag(t *testing.T) {
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	pre := geom.PrecomputeTriangle(dir)
	origin := vecmath.Vec3{X: 0, Y: 0, Z: -5}

	// Counter-clockwise winding when viewed from -z is a front face for
	// this ray; reversing the last two vertices flips it to a back face.
	p0 := vecmath.Vec3{X: -1, Y: -1, Z: 0}
	p1 := vecmath.Vec3{X: 0, Y: 1, Z: 0}
	p2 := vecmath.Vec3{X: 1, Y: -1, Z: 0}

	front, ok := geom.TestTriangle(origin, pre, p0, p1, p2)
	require.True(t, ok)

	back, ok := geom.TestTriangle(origin, pre, p0, p2, p1)
	require.True(t, ok)

	assert.NotEqual(t, front.BackFace, back.BackFace)
}

func TestTestSphereOriginOutside(t *testing.T) {
	origin := vecmath.Vec3{X: 0, Y: 0, Z: -5}
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	tmin, tmax, hit := geom.TestSphere(origin, dir, vecmath.Vec3{}, 1)
	require.True(t, hit)
	assert.InDelta(t, 4.0, float64(tmin), 1e-5)
	assert.InDelta(t, 6.0, float64(tmax), 1e-5)
}

func TestTestSphereOriginInside(t *testing.T) {
	origin := vecmath.Vec3{}
	dir := vecmath.Vec3{X: 0, Y: 0, Z: 1}
	tmin, tmax, hit := geom.TestSphere(origin, dir, vecmath.Vec3{}, 1)
	require.True(t, hit)
	assert.Less(t, tmin, float32(0))
	assert.InDelta(t, 1.0, float64(tmax), 1e-5)
}

func TestAABBUnionAndTransform(t *testing.T) {
	box := unitCube()
	m := vecmath.Translation(vecmath.Vec3{X: 10, Y: 0, Z: 0})
	moved := box.Transform(m)
	assert.InDelta(t, 9.0, float64(moved.Min.X), 1e-5)
	assert.InDelta(t, 11.0, float64(moved.Max.X), 1e-5)
}
