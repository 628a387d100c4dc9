// Package bvh builds Surface-Area-Heuristic bounding volume hierarchies and
// lays them out for stackless traversal: a bottom-level structure (BLAS)
// over a mesh's triangles, and a top-level structure (TLAS) over a scene's
// instances. Both are built by the same generic SAH builder and share one
// arena (Buffers) so a per-frame TLAS can be rebuilt without leaking nodes,
// as long as it is always the last thing built (see PopLast).
package bvh

import (
	"errors"

	"github.com/tessera-render/tessera/vecmath"
)

// leafBit marks a BvhLink.Accept value as a leaf reference rather than a
// node index to jump to.
const leafBit = 0x80000000

// ErrEmptyLeafSet is returned by the build functions when asked to build a
// BVH over zero leaves; there is no meaningful bounding volume for an empty
// set, and the stackless traversal scheme has no representation for an
// empty tree.
var ErrEmptyLeafSet = errors.New("bvh: cannot build a BVH over zero leaves")

// ErrNotTailOfArena is returned by PopLast when the given BVH is not the
// most recently built entry in the buffers, so popping it would either
// leave a hole or discard unrelated nodes.
var ErrNotTailOfArena = errors.New("bvh: BVH is not the last one built in these buffers")

// BvhNode is one node's bounding box.
type BvhNode struct {
	Min, Max vecmath.Vec3
}

// BvhLink precomputes, for one traversal direction signature, which node to
// visit next depending on whether the current node's box was a hit
// (Accept) or a miss (Cancel). If Accept has its top bit set, the rest of
// the bits are a leaf's original index rather than a node to jump to.
type BvhLink struct {
	Accept, Cancel uint32
}

// IsLeaf reports whether l refers to a leaf rather than an interior node.
func (l BvhLink) IsLeaf() bool { return l.Accept&leafBit != 0 }

// LeafIndex returns the original leaf index encoded in l. Only valid when
// IsLeaf() is true.
func (l BvhLink) LeafIndex() uint32 { return l.Accept &^ leafBit }

// Bvh is a handle to one BVH tree stored in a Buffers arena.
type Bvh struct {
	NodeCount  uint32
	NodeOffset uint32
}

// Buffers is the arena backing every BVH built with this package. Nodes and
// links for every tree live in one pair of contiguous slices; a Bvh handle
// is just an (offset, count) window into them.
type Buffers struct {
	Nodes []BvhNode
	Links []BvhLink
}

// Node returns node index (counted from b's first node) of b within bc.
func (bc *Buffers) Node(b Bvh, index uint32) BvhNode {
	return bc.Nodes[b.NodeOffset+index]
}

// DirectionalLinks returns the slice of links for b corresponding to one of
// the 8 traversal direction signatures (0..7, bit 0 = sign of x, bit 1 = y,
// bit 2 = z).
func (bc *Buffers) DirectionalLinks(b Bvh, signature int) []BvhLink {
	base := 8*b.NodeOffset + uint32(signature)*b.NodeCount
	return bc.Links[base : base+b.NodeCount]
}

// PopLast discards the nodes and links of b, which must be the most
// recently built BVH in bc (i.e. its window must end exactly at the end of
// the arena). This lets a per-frame TLAS be rebuilt every frame without the
// arena growing without bound. It returns ErrNotTailOfArena instead of
// corrupting the arena if that invariant doesn't hold.
func PopLast(bc *Buffers, b *Bvh) error {
	if b.NodeCount == 0 {
		return nil
	}
	if b.NodeOffset+b.NodeCount != uint32(len(bc.Nodes)) {
		return ErrNotTailOfArena
	}
	bc.Nodes = bc.Nodes[:b.NodeOffset]
	bc.Links = bc.Links[:uint64(b.NodeOffset)*8]
	b.NodeCount = 0
	return nil
}

// Leaf is one bounding volume to be placed in the tree, tagged with the
// caller's own index for it (a triangle index for a BLAS, an instance index
// for a TLAS).
type Leaf struct {
	Min, Max vecmath.Vec3
	Index    uint32
}
