package scene_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-render/tessera/scene"
	"github.com/tessera-render/tessera/vecmath"
)

func writeQuadOBJ(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	contents := `
v -10 0 -10
v 10 0 -10
v 10 0 10
v -10 0 10
vn 0 1 0
f 1//1 2//1 3//1
f 1//1 3//1 4//1
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMeshAndAddInstanceBuildsBLAS(t *testing.T) {
	dir := t.TempDir()
	objPath := writeQuadOBJ(t, dir, "plane.obj")

	s := scene.New()
	require.NoError(t, s.LoadMesh("plane", objPath))
	require.NoError(t, s.AddInstance("plane", vecmath.Vec3{}, vecmath.Vec3{}, vecmath.Vec3{X: 1, Y: 1, Z: 1}))

	require.Len(t, s.Instances, 1)
	assert.Greater(t, s.Instances[0].Blas.NodeCount, uint32(0))
}

func TestAddInstanceUnknownMeshErrors(t *testing.T) {
	s := scene.New()
	err := s.AddInstanceTransform("ghost", vecmath.Identity4())
	assert.ErrorIs(t, err, scene.ErrUnknownMesh)
}

func TestBuildSubframeTLASAndQueryHitsPlane(t *testing.T) {
	dir := t.TempDir()
	objPath := writeQuadOBJ(t, dir, "plane.obj")

	s := scene.New()
	require.NoError(t, s.LoadMesh("plane", objPath))
	require.NoError(t, s.AddInstance("plane", vecmath.Vec3{}, vecmath.Vec3{}, vecmath.Vec3{X: 1, Y: 1, Z: 1}))
	staticEnd := len(s.Instances)

	var sf scene.Subframe
	require.NoError(t, s.BuildSubframeTLAS(&sf, staticEnd, staticEnd, staticEnd))

	q := s.Query(sf, staticEnd, staticEnd, staticEnd, vecmath.Vec3{X: 0, Y: 5, Z: 0}, vecmath.Vec3{X: 0, Y: -1, Z: 0}, 0, 1e9)
	for {
		cont, err := q.Proceed()
		require.NoError(t, err)
		if !cont {
			break
		}
		q.Confirm()
	}

	require.GreaterOrEqual(t, q.Closest.THit, float32(0))
	assert.InDelta(t, 5, float64(q.Closest.THit), 1e-4)
}

func TestScatterInstancesPlacesOnlyOnEligibleSlopes(t *testing.T) {
	dir := t.TempDir()
	objPath := writeQuadOBJ(t, dir, "terrain.obj")
	treeObj := writeQuadOBJ(t, dir, "tree.obj")

	s := scene.New()
	require.NoError(t, s.LoadMesh("terrain", objPath))
	require.NoError(t, s.LoadMesh("tree", treeObj))
	// Scaled to 200x200 so the terrain covers the whole +-100 area that
	// ScatterInstances drops candidates over.
	require.NoError(t, s.AddInstance("terrain", vecmath.Vec3{}, vecmath.Vec3{}, vecmath.Vec3{X: 10, Y: 1, Z: 10}))

	cfg := scene.ScatterConfig{
		LowlandTree:      "tree",
		LowlandMaxHeight: 1000,
		MidlandTrees:     [3]string{"tree", "tree", "tree"},
		MidlandMaxHeight: 2000,
		HighlandTree:     "tree",
		SteepRocks:       [2]string{"tree", "tree"},
		FlatRocks:        [3]string{"tree", "tree", "tree"},
	}

	before := len(s.Instances)
	require.NoError(t, s.ScatterInstances(cfg, 0, 32, [4]uint32{1, 2, 3, 4}))
	// The plane is flat (normal straight up), so every candidate that lands
	// on it at all should be eligible and get an instance placed.
	assert.Greater(t, len(s.Instances), before)
}

func TestAnimatorStopsScanBreaksAtFirstFutureStop(t *testing.T) {
	var a, b float32
	anim := scene.NewAnimator([]scene.Stop{
		{Start: 0, Duration: 10, From: 0, To: 1, Target: &a},
		{Start: 20, Duration: 10, From: 0, To: 1, Target: &b},
	})
	anim.Play(5)
	assert.InDelta(t, 0.5, float64(a), 1e-5)
	// b's stop hasn't started yet at t=5, so it must be untouched (zero).
	assert.Equal(t, float32(0), b)
}

func TestAnimatorInstantJumpOnZeroDuration(t *testing.T) {
	var v float32 = -1
	anim := scene.NewAnimator([]scene.Stop{
		{Start: 5, Duration: 0, From: 0, To: 42, Target: &v},
	})
	anim.Play(100)
	assert.Equal(t, float32(42), v)
}
