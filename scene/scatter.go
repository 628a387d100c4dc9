package scene

import (
	"math"

	"github.com/tessera-render/tessera/bvh"
	"github.com/tessera-render/tessera/rayquery"
	"github.com/tessera-render/tessera/vecmath"
)

// ScatterConfig names the mesh variants ScatterInstances picks from when
// procedurally placing vegetation and rocks across a terrain mesh,
// generalizing the fixed set of tree/rock names the source renderer's
// load_scene used.
type ScatterConfig struct {
	// LowlandTree is used below LowlandMaxHeight.
	LowlandTree     string
	LowlandMaxHeight float32
	// MidlandTrees are used between LowlandMaxHeight and MidlandMaxHeight,
	// selected among by the same u.z thresholds as the source.
	MidlandTrees     [3]string // {primary, secondary (unreachable), fallback}
	MidlandMaxHeight float32
	// HighlandTree is used above MidlandMaxHeight.
	HighlandTree string

	// SteepRocks are used where only a rock, not a tree, would fit.
	SteepRocks [2]string
	// FlatRocks are used where both a tree and a rock would fit.
	FlatRocks [3]string // {primary, secondary (unreachable), fallback}
}

// ScatterInstances procedurally places instances of the configured mesh
// variants across the terrain instance at terrainInstanceIndex, the same
// way load_scene's OBJECT_COUNT loop does: jittered points are dropped
// straight down onto the terrain, classified by the hit normal's slope
// into tree-eligible / rock-eligible / neither, and an instance is added
// for each point that lands somewhere eligible. seed is a PCG-4D counter
// state, advanced once per candidate point.
//
// This builds and then discards a throwaway single-instance TLAS over the
// terrain (via bvh.PopLast once scattering finishes), exactly as
// terrain_trace's caller does, so the scan never leaks BVH arena space.
func (s *Scene) ScatterInstances(cfg ScatterConfig, terrainInstanceIndex, objectCount int, seed [4]uint32) error {
	terrain := s.Instances[terrainInstanceIndex]

	tlas, rqInstances, tris, err := s.buildTLASOver([]Instance{terrain}, &s.BvhBuf)
	if err != nil {
		return err
	}

	for i := 0; i < objectCount; i++ {
		var u vecmath.Vec4
		u, seed = vecmath.GenerateUniformRandom4(seed)

		origin := vecmath.Vec3{X: u.X*200 - 100, Y: 200, Z: u.Y*200 - 100}
		dir := vecmath.Vec3{X: 0, Y: -1, Z: 0}

		q := rayquery.New(tlas, rqInstances, &s.BvhBuf, tris, origin, dir, 0, 1e9)
		for {
			cont, err := q.Proceed()
			if err != nil {
				return err
			}
			if !cont {
				break
			}
			q.Confirm()
		}
		if q.Closest.THit < 0 {
			continue
		}

		triOffset := terrain.Mesh.IndexOffset + q.Closest.PrimitiveID*3
		i0 := s.MeshBuf.Indices[triOffset+0]
		if s.MeshBuf.Material[terrain.Mesh.BaseVertexOffset+i0].Z != 0 {
			continue // Water triangle; don't place anything on it.
		}
		i1 := s.MeshBuf.Indices[triOffset+1]
		i2 := s.MeshBuf.Indices[triOffset+2]
		n0 := s.MeshBuf.Normal[terrain.Mesh.BaseVertexOffset+i0]
		n1 := s.MeshBuf.Normal[terrain.Mesh.BaseVertexOffset+i1]
		n2 := s.MeshBuf.Normal[terrain.Mesh.BaseVertexOffset+i2]
		bary := q.Closest.Barycentrics
		hitNormal := n0.Scale(bary.X).Add(n1.Scale(bary.Y)).Add(n2.Scale(bary.Z)).Normalize()
		hitPos := origin.Add(dir.Scale(q.Closest.THit))

		treeAllowed := hitNormal.Y > 0.7
		rockAllowed := hitNormal.Y > 0.9
		if !treeAllowed && !rockAllowed {
			continue
		}

		const treeProbability = 0.3
		spawnTree := true
		switch {
		case rockAllowed && !treeAllowed:
			spawnTree = false
		case !rockAllowed && treeAllowed:
			spawnTree = true
		default:
			spawnTree = u.Z < treeProbability
		}

		if spawnTree {
			u.Z /= treeProbability
			rotation := vecmath.RotationEuler(0, 2*float32(math.Pi)*u.W, 0)
			transform := vecmath.Translation(hitPos).Mul(vecmath.Rotation4(rotation))

			var name string
			switch {
			case hitPos.Y < cfg.LowlandMaxHeight:
				name = cfg.LowlandTree
			case hitPos.Y < cfg.MidlandMaxHeight:
				// Preserves a latent bug from the source renderer
				// verbatim: the second branch compares u.z against the
				// same threshold as the first, so it can never be taken.
				// This is deliberately not "fixed".
				if u.Z < 0.3 {
					name = cfg.MidlandTrees[0]
				} else if u.Z < 0.3 {
					name = cfg.MidlandTrees[1]
				} else {
					name = cfg.MidlandTrees[2]
				}
			default:
				name = cfg.HighlandTree
			}
			if err := s.AddInstanceTransform(name, transform); err != nil {
				return err
			}
		} else {
			u.Z = (u.Z - treeProbability) / (1 - treeProbability)
			tangentSpace := vecmath.CreateTangentSpace(hitNormal)
			transform := swapRows1And2(vecmath.Rotation4(tangentSpace))
			transform = vecmath.Translation(hitPos).Mul(transform)

			var name string
			if !treeAllowed {
				if u.Z < 0.6 {
					name = cfg.SteepRocks[0]
				} else {
					name = cfg.SteepRocks[1]
				}
			} else if u.Z < 0.3 {
				name = cfg.FlatRocks[0]
			} else if u.Z < 0.3 {
				// Same unreachable-branch quirk as the tree selection above.
				name = cfg.FlatRocks[1]
			} else {
				name = cfg.FlatRocks[2]
			}
			if err := s.AddInstanceTransform(name, transform); err != nil {
				return err
			}
		}
	}

	return bvh.PopLast(&s.BvhBuf, &tlas)
}

// swapRows1And2 swaps the Y and Z rows of m, matching the source's
// std::swap(transform.r[2], transform.r[1]) on the tangent-space-derived
// rock placement matrix -- the tangent space treats the hit normal as its
// local Z axis, but instance transforms expect the mesh's own up axis
// (typically Y) to land on the surface normal, hence the swap.
func swapRows1And2(m vecmath.Mat4) vecmath.Mat4 {
	for i := range m.Cols {
		m.Cols[i].Y, m.Cols[i].Z = m.Cols[i].Z, m.Cols[i].Y
	}
	return m
}
