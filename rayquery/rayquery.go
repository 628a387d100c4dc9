// Package rayquery implements a stackless ray traversal engine over a
// two-level acceleration structure: a single TLAS over scene instances,
// each instance pointing at a BLAS over one mesh's triangles. Traversal of
// both levels uses the exact same stackless loop; the TLAS and BLAS each
// get their own traversal context, and entering/leaving a BLAS is just a
// matter of switching which context is "active".
//
// The calling convention mirrors a GPU ray query object: construct one with
// New, call Proceed in a loop, and call Confirm on any candidate hit that
// should count, for example after testing for transparency. After the loop
// exits, Closest holds the nearest confirmed hit, or a miss if THit is
// negative.
package rayquery

import (
	"errors"

	"github.com/tessera-render/tessera/bvh"
	"github.com/tessera-render/tessera/geom"
	"github.com/tessera-render/tessera/vecmath"
)

// ErrInstanceOutOfRange is returned when a traversal step would enter an
// instance index that has no corresponding entry in the instance list
// passed to New, which would only happen if the TLAS and instance list
// passed to New were built from inconsistent data.
var ErrInstanceOutOfRange = errors.New("rayquery: instance index out of range")

const invalidIndex = 0xFFFFFFFF

// HitInfo describes one intersection between a ray and the scene.
type HitInfo struct {
	Barycentrics vecmath.Vec3
	THit         float32
	InstanceID   uint32
	PrimitiveID  uint32
	BackFace     bool
}

func missHit() HitInfo {
	return HitInfo{THit: -1, InstanceID: invalidIndex}
}

// Instance is one TLAS entry: a BLAS plus the transforms placing it in the
// scene. InvTransform must be exactly the inverse of Transform.
type Instance struct {
	Blas         bvh.Bvh
	Transform    vecmath.Mat4
	InvTransform vecmath.Mat4
}

// TriangleSource fetches the three local-space (pre-instance-transform)
// vertex positions of one triangle of the mesh bound to a given instance,
// letting rayquery stay independent of any particular mesh storage layout.
type TriangleSource interface {
	Triangle(instanceIndex uint32, primitiveID uint32) (pos0, pos1, pos2 vecmath.Vec3)
}

type traversalContext struct {
	as         bvh.Bvh
	origin     vecmath.Vec3
	dir        vecmath.Vec3
	invDir     vecmath.Vec3
	linkOffset uint32
	nodeIndex  uint32
}

func directionalLinkIndex(dir vecmath.Vec3) uint32 {
	var idx uint32
	if dir.X > 0 {
		idx |= 1
	}
	if dir.Y > 0 {
		idx |= 2
	}
	if dir.Z > 0 {
		idx |= 4
	}
	return idx
}

func newContext(as bvh.Bvh, origin, dir vecmath.Vec3) traversalContext {
	return traversalContext{
		as:         as,
		origin:     origin,
		dir:        dir,
		invDir:     geom.SafeInvDir(dir),
		linkOffset: as.NodeOffset*8 + directionalLinkIndex(dir)*as.NodeCount,
	}
}

// Query is the traversal state for one ray against one scene.
type Query struct {
	bc        *bvh.Buffers
	instances []Instance
	tris      TriangleSource

	tlasCtx traversalContext
	blasCtx traversalContext

	tmin, tmax float32
	// blasAxis is -1 while traversing the TLAS, and the precomputed
	// dominant axis for the current BLAS once one has been entered.
	blasAxis int
	blasPre  geom.TrianglePrecompute

	Candidate HitInfo
	Closest   HitInfo
}

// New starts a ray query against the given TLAS and instance list.
func New(
	tlas bvh.Bvh,
	instances []Instance,
	bc *bvh.Buffers,
	tris TriangleSource,
	origin, direction vecmath.Vec3,
	tmin, tmax float32,
) Query {
	return Query{
		bc:        bc,
		instances: instances,
		tris:      tris,
		tlasCtx:   newContext(tlas, origin, direction),
		tmin:      tmin,
		tmax:      tmax,
		blasAxis:  -1,
		Candidate: missHit(),
		Closest:   missHit(),
	}
}

func (q *Query) enterBLAS(instanceIndex uint32) error {
	if int(instanceIndex) >= len(q.instances) {
		return ErrInstanceOutOfRange
	}
	instance := q.instances[instanceIndex]

	origin := instance.InvTransform.MulPoint(q.tlasCtx.origin)
	dir := instance.InvTransform.MulDir(q.tlasCtx.dir)

	q.blasCtx = traversalContext{
		as:     instance.Blas,
		origin: origin,
		invDir: geom.SafeInvDir(dir),
		linkOffset: instance.Blas.NodeOffset*8 +
			directionalLinkIndex(dir)*instance.Blas.NodeCount,
	}
	q.blasPre = geom.PrecomputeTriangle(dir)
	q.blasAxis = q.blasPre.Axis
	return nil
}

// traverse runs the stackless loop for one context until it finds a leaf
// whose box was hit, or exhausts the tree. It returns invalidIndex on a
// complete miss.
func (q *Query) traverse(ctx *traversalContext) uint32 {
	for ctx.nodeIndex < ctx.as.NodeCount {
		node := q.bc.Node(ctx.as, ctx.nodeIndex)
		link := q.bc.Links[ctx.linkOffset+ctx.nodeIndex]

		box := geom.AABB{Min: node.Min, Max: node.Max}
		_, _, hit := box.SlabTest(ctx.origin, ctx.invDir, q.tmin, q.tmax)

		if hit {
			accept := link.Accept &^ 0x80000000
			if accept != link.Accept {
				// Leaf node.
				ctx.nodeIndex = link.Cancel
				return accept
			}
			ctx.nodeIndex = accept
		} else {
			ctx.nodeIndex = link.Cancel
		}
	}
	return invalidIndex
}

func (q *Query) testTriangle() bool {
	pos0, pos1, pos2 := q.tris.Triangle(q.Candidate.InstanceID, q.Candidate.PrimitiveID)
	hit, ok := geom.TestTriangle(q.blasCtx.origin, q.blasPre, pos0, pos1, pos2)
	q.Candidate.THit = hit.T
	q.Candidate.Barycentrics = vecmath.Vec3{X: hit.BaryU, Y: hit.BaryV, Z: 1 - hit.BaryU - hit.BaryV}
	q.Candidate.BackFace = hit.BackFace
	return ok && q.Candidate.THit < q.tmax && q.Candidate.THit > q.tmin
}

// Proceed advances the traversal to the next candidate hit. It returns
// (true, nil) when Candidate holds a new hit worth inspecting, (false, nil)
// once the whole TLAS has been exhausted with no further candidates, and a
// non-nil error if the acceleration structures were inconsistent.
func (q *Query) Proceed() (bool, error) {
	for {
		var leaf uint32
		if q.blasAxis < 0 {
			leaf = q.traverse(&q.tlasCtx)
		} else {
			leaf = q.traverse(&q.blasCtx)
		}

		if leaf != invalidIndex {
			if q.blasAxis < 0 {
				q.Candidate.InstanceID = leaf
				if err := q.enterBLAS(leaf); err != nil {
					return false, err
				}
			} else {
				q.Candidate.PrimitiveID = leaf
				if q.testTriangle() {
					return true, nil
				}
			}
		} else {
			if q.blasAxis < 0 {
				return false, nil
			}
			q.blasAxis = -1
		}
	}
}

// Confirm accepts Candidate as the new closest hit, narrowing the ray's
// maximum distance so later traversal steps can skip anything farther away.
func (q *Query) Confirm() {
	q.Closest = q.Candidate
	q.tmax = q.Candidate.THit
}
