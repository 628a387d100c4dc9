package rayquery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-render/tessera/bvh"
	"github.com/tessera-render/tessera/rayquery"
	"github.com/tessera-render/tessera/vecmath"
)

// singleTriangleMesh is a minimal TriangleSource backing one instance with
// one fixed triangle, enough to exercise the TLAS->BLAS state machine.
type singleTriangleMesh struct {
	pos0, pos1, pos2 vecmath.Vec3
}

func (m singleTriangleMesh) Triangle(instanceIndex, primitiveID uint32) (vecmath.Vec3, vecmath.Vec3, vecmath.Vec3) {
	return m.pos0, m.pos1, m.pos2
}

func buildUnitTriangleScene(t *testing.T) (bvh.Bvh, []rayquery.Instance, *bvh.Buffers, singleTriangleMesh) {
	t.Helper()
	tris := singleTriangleMesh{
		pos0: vecmath.Vec3{X: -1, Y: -1, Z: 0},
		pos1: vecmath.Vec3{X: 0, Y: 1, Z: 0},
		pos2: vecmath.Vec3{X: 1, Y: -1, Z: 0},
	}

	var bc bvh.Buffers
	blas, err := bvh.BuildBLAS(1, func(int) (vecmath.Vec3, vecmath.Vec3) {
		return vecmath.Vec3{X: -1, Y: -1, Z: 0}, vecmath.Vec3{X: 1, Y: 1, Z: 0}
	}, &bc)
	require.NoError(t, err)

	identity := vecmath.Identity4()
	tlas, err := bvh.BuildTLAS([]bvh.Instance{{Blas: blas, Transform: identity}}, &bc, &bc)
	require.NoError(t, err)

	instances := []rayquery.Instance{
		{Blas: blas, Transform: identity, InvTransform: identity},
	}
	return tlas, instances, &bc, tris
}

func TestQueryHitsTriangleThroughCenter(t *testing.T) {
	tlas, instances, bc, tris := buildUnitTriangleScene(t)
	q := rayquery.New(tlas, instances, bc, tris,
		vecmath.Vec3{X: 0, Y: -0.2, Z: -5}, vecmath.Vec3{X: 0, Y: 0, Z: 1},
		0, 1e9)

	for {
		hit, err := q.Proceed()
		require.NoError(t, err)
		if !hit {
			break
		}
		q.Confirm()
	}

	require.GreaterOrEqual(t, q.Closest.THit, float32(0))
	assert.InDelta(t, 5.0, float64(q.Closest.THit), 1e-4)
	assert.False(t, q.Closest.BackFace)
}

func TestQueryMissesThroughCorner(t *testing.T) {
	tlas, instances, bc, tris := buildUnitTriangleScene(t)
	q := rayquery.New(tlas, instances, bc, tris,
		vecmath.Vec3{X: 5, Y: 5, Z: -5}, vecmath.Vec3{X: 0, Y: 0, Z: 1},
		0, 1e9)

	for {
		hit, err := q.Proceed()
		require.NoError(t, err)
		if !hit {
			break
		}
		q.Confirm()
	}

	assert.Less(t, q.Closest.THit, float32(0))
}

// TestQueryTLASInstancingResolvesNearerInstance builds two single-triangle
// instances of the same local BLAS translated to (+3,0,0) and (-3,0,0),
// and checks a ray aimed at the right-hand one resolves to that instance's
// position in the array the TLAS was built over (index 0), not to its
// position inside the tree: BuildTLAS stamps each leaf with its
// original array index (see bvh.BuildTLAS), so instance_id tracks the
// caller's instance list regardless of how the SAH split reorders nodes.
func TestQueryTLASInstancingResolvesNearerInstance(t *testing.T) {
	tris := singleTriangleMesh{
		pos0: vecmath.Vec3{X: -1, Y: -1, Z: 0},
		pos1: vecmath.Vec3{X: 1, Y: -1, Z: 0},
		pos2: vecmath.Vec3{X: 0, Y: 1, Z: 0},
	}

	var bc bvh.Buffers
	blas, err := bvh.BuildBLAS(1, func(int) (vecmath.Vec3, vecmath.Vec3) {
		return vecmath.Vec3{X: -1, Y: -1, Z: 0}, vecmath.Vec3{X: 1, Y: 1, Z: 0}
	}, &bc)
	require.NoError(t, err)

	rightTransform := vecmath.Translation(vecmath.Vec3{X: 3, Y: 0, Z: 0})
	leftTransform := vecmath.Translation(vecmath.Vec3{X: -3, Y: 0, Z: 0})

	tlas, err := bvh.BuildTLAS([]bvh.Instance{
		{Blas: blas, Transform: rightTransform},
		{Blas: blas, Transform: leftTransform},
	}, &bc, &bc)
	require.NoError(t, err)

	instances := []rayquery.Instance{
		{Blas: blas, Transform: rightTransform, InvTransform: rightTransform.Inverse4()},
		{Blas: blas, Transform: leftTransform, InvTransform: leftTransform.Inverse4()},
	}

	q := rayquery.New(tlas, instances, &bc, tris,
		vecmath.Vec3{X: 0, Y: 0, Z: 10}, vecmath.Vec3{X: 3, Y: 0, Z: -10}.Normalize(),
		0, 1e9)
	for {
		hit, err := q.Proceed()
		require.NoError(t, err)
		if !hit {
			break
		}
		q.Confirm()
	}

	require.GreaterOrEqual(t, q.Closest.THit, float32(0))
	assert.Equal(t, uint32(0), q.Closest.InstanceID)
}

func TestQueryBackFaceFlag(t *testing.T) {
	tris := singleTriangleMesh{
		pos0: vecmath.Vec3{X: -1, Y: -1, Z: 0},
		pos1: vecmath.Vec3{X: 1, Y: -1, Z: 0},
		pos2: vecmath.Vec3{X: 0, Y: 1, Z: 0},
	}

	var bc bvh.Buffers
	blas, err := bvh.BuildBLAS(1, func(int) (vecmath.Vec3, vecmath.Vec3) {
		return vecmath.Vec3{X: -1, Y: -1, Z: 0}, vecmath.Vec3{X: 1, Y: 1, Z: 0}
	}, &bc)
	require.NoError(t, err)

	identity := vecmath.Identity4()
	tlas, err := bvh.BuildTLAS([]bvh.Instance{{Blas: blas, Transform: identity}}, &bc, &bc)
	require.NoError(t, err)
	instances := []rayquery.Instance{{Blas: blas, Transform: identity, InvTransform: identity}}

	q := rayquery.New(tlas, instances, &bc, tris,
		vecmath.Vec3{X: 0, Y: -0.2, Z: -5}, vecmath.Vec3{X: 0, Y: 0, Z: 1},
		0, 1e9)
	for {
		hit, err := q.Proceed()
		require.NoError(t, err)
		if !hit {
			break
		}
		q.Confirm()
	}

	assert.True(t, q.Closest.THit >= 0)
	assert.True(t, q.Closest.BackFace)
}
