package meshio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-render/tessera/meshio"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadTriangleDeduplicatesSharedVertices(t *testing.T) {
	dir := t.TempDir()
	objPath := writeTempFile(t, dir, "quad.obj", `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1
f 1//1 3//1 4//1
`)

	var buf meshio.Buffers
	mesh, err := meshio.Load(&buf, objPath)
	require.NoError(t, err)

	assert.EqualValues(t, 2, mesh.TriangleCount)
	assert.EqualValues(t, 4, mesh.VertexCount)
	assert.Len(t, buf.Indices, 6)
	assert.Len(t, buf.Pos, 4)
}

func TestLoadRejectsNonTriangularFace(t *testing.T) {
	dir := t.TempDir()
	objPath := writeTempFile(t, dir, "quad.obj", `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`)

	var buf meshio.Buffers
	_, err := meshio.Load(&buf, objPath)
	assert.ErrorIs(t, err, meshio.ErrNonTriangularFace)
}

func TestLoadAppliesMaterialFromMTL(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "tri.mtl", `
newmtl Emitter
Kd 0.8 0.2 0.1
Ke 10 0 0
Pr 0.5
Pm 0
d 1
`)
	objPath := writeTempFile(t, dir, "tri.obj", `
mtllib tri.mtl
usemtl Emitter
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	var buf meshio.Buffers
	_, err := meshio.Load(&buf, objPath)
	require.NoError(t, err)

	require.Len(t, buf.Albedo, 3)
	require.Len(t, buf.Material, 3)
	for i := range buf.Albedo {
		assert.InDelta(t, 0.8, float64(buf.Albedo[i].X), 1e-6)
		// The red channel carries emission (Ke.x=10 nonzero), so the packed
		// emission term (the max over channels) must be positive.
		assert.Greater(t, float64(buf.Material[i].W), 0.0)
	}
}

func TestLoadTwoMeshesShareOneArena(t *testing.T) {
	dir := t.TempDir()
	objA := writeTempFile(t, dir, "a.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	objB := writeTempFile(t, dir, "b.obj", "v 2 0 0\nv 3 0 0\nv 2 1 0\nf 1 2 3\n")

	var buf meshio.Buffers
	meshA, err := meshio.Load(&buf, objA)
	require.NoError(t, err)
	meshB, err := meshio.Load(&buf, objB)
	require.NoError(t, err)

	assert.EqualValues(t, 0, meshA.BaseVertexOffset)
	assert.EqualValues(t, 3, meshB.BaseVertexOffset)
	assert.EqualValues(t, 0, meshA.IndexOffset)
	assert.EqualValues(t, 3, meshB.IndexOffset)
	assert.Len(t, buf.Pos, 6)
	assert.Len(t, buf.Indices, 6)
}
