package bvh

import (
	"math"
	"sort"

	"github.com/tessera-render/tessera/vecmath"
)

// buildNode is the in-progress tree representation used while building,
// before it is flattened into breadth-first order. leafCount does double
// duty: for an interior node it is the number of leaves under it, but for
// a single-leaf node it is overwritten with that leaf's original index
// (matching the source's self.leaf_count = leaves[0].index quirk), since at
// that point the leaf count itself is no longer useful and build_recursive_sah
// never reads it again for that node.
type buildNode struct {
	min, max vecmath.Vec3
	leafCount uint32
	axis      int
	index     uint32
	children  []*buildNode
}

type boxPair struct {
	min, max vecmath.Vec3
}

func halfArea(min, max vecmath.Vec3) float32 {
	s := max.Sub(min)
	return s.X*s.Y + s.Z*s.X + s.Y*s.Z
}

func sortLeaves(leaves []Leaf, axis int) {
	sort.Slice(leaves, func(i, j int) bool {
		a, b := leaves[i], leaves[j]
		ac := a.Max.Component(axis) + a.Min.Component(axis)
		bc := b.Max.Component(axis) + b.Min.Component(axis)
		if ac != bc {
			return ac < bc
		}
		return a.Index < b.Index
	})
}

// buildRecursiveSAH partitions leaves into a tree using the Surface Area
// Heuristic: for each axis, leaves are sorted by centroid and every
// possible split point is costed as (i+1)*area(left) + (n-1-i)*area(right),
// the minimum-cost split found across all three axes is normalized by the
// parent's own area and a constant traversal cost of 2.0 is added; when
// the leaf count does not exceed that total, splitting further isn't worth
// it, and the remaining leaves become children directly instead.
func buildRecursiveSAH(leaves []Leaf, self *buildNode) {
	self.axis = -1
	self.leafCount = uint32(len(leaves))

	if len(leaves) == 1 {
		self.leafCount = leaves[0].Index
		return
	}

	minCost := float32(math.MaxFloat32)
	minSplit := 0
	var minBounds0, minBounds1 boxPair

	n := len(leaves)
	firstBounds := make([]boxPair, n-1)
	secondBounds := make([]boxPair, n-1)

	for axis := 0; axis < 3; axis++ {
		sortLeaves(leaves, axis)

		for i := 0; i < n-1; i++ {
			if i == 0 {
				firstBounds[i] = boxPair{leaves[i].Min, leaves[i].Max}
			} else {
				firstBounds[i] = boxPair{
					firstBounds[i-1].min.Min(leaves[i].Min),
					firstBounds[i-1].max.Max(leaves[i].Max),
				}
			}

			invI := n - 1 - i
			if i == 0 {
				secondBounds[invI-1] = boxPair{leaves[invI].Min, leaves[invI].Max}
			} else {
				secondBounds[invI-1] = boxPair{
					secondBounds[invI].min.Min(leaves[invI].Min),
					secondBounds[invI].max.Max(leaves[invI].Max),
				}
			}
		}

		for i := 0; i < n-1; i++ {
			bounds0 := firstBounds[i]
			bounds1 := secondBounds[i]
			area0 := halfArea(bounds0.min, bounds0.max)
			area1 := halfArea(bounds1.min, bounds1.max)

			cost := float32(i+1)*area0 + float32(n-1-i)*area1
			if cost < minCost {
				minBounds0 = bounds0
				minBounds1 = bounds1
				minCost = cost
				minSplit = i + 1
				self.axis = axis
			}
		}
	}

	size := self.max.Sub(self.min)
	parentArea := size.X*size.Y + size.Z*size.X + size.Y*size.Z
	minCost /= parentArea
	// A constant traversal cost of 2 models the cost of visiting one more
	// node versus testing one more leaf directly.
	minCost += 2.0

	if float32(n) <= minCost {
		self.axis = 2
		if size.X > size.Y && size.X > size.Z {
			self.axis = 0
		} else if size.Y > size.Z {
			self.axis = 1
		}
	}

	sortLeaves(leaves, self.axis)

	if float32(n) <= minCost {
		for i := range leaves {
			self.children = append(self.children, &buildNode{
				min:       leaves[i].Min,
				max:       leaves[i].Max,
				leafCount: leaves[i].Index,
				axis:      -1,
			})
		}
		return
	}

	left := &buildNode{min: minBounds0.min, max: minBounds0.max}
	right := &buildNode{min: minBounds1.min, max: minBounds1.max}
	self.children = []*buildNode{left, right}
	buildRecursiveSAH(leaves[:minSplit], left)
	buildRecursiveSAH(leaves[minSplit:], right)
}

// traverseBFS assigns sequential node indices in breadth-first order and
// appends each node's AABB to out, so sibling and cousin nodes end up close
// together in memory the way a level-order layout naturally does.
func traverseBFS(root *buildNode, out *[]BvhNode) {
	layer := []*buildNode{root}
	nodeIndex := uint32(0)
	for len(layer) > 0 {
		var next []*buildNode
		for _, node := range layer {
			*out = append(*out, BvhNode{Min: node.min, Max: node.max})
			node.index = nodeIndex
			nodeIndex++
			next = append(next, node.children...)
		}
		layer = next
	}
}

// saveTraversalLinks fills in the per-signature accept/cancel links for one
// traversal direction. signs[axis] tells us whether the ray direction along
// that axis is positive; children are visited in front-to-back order for
// that direction, which is simply the build order when signs[axis] is true
// and reversed when it is false, since build_recursive_sah always sorts
// children along the split axis in increasing order.
func saveTraversalLinks(signs [3]bool, branch *buildNode, cancel uint32, links []BvhLink) {
	if len(branch.children) == 0 {
		links[branch.index] = BvhLink{Accept: leafBit | branch.leafCount, Cancel: cancel}
		return
	}

	reverse := !signs[branch.axis]
	nChildren := len(branch.children)
	for i := 0; i < nChildren; i++ {
		invI := nChildren - 1 - i
		idx := i
		if reverse {
			idx = invI
		}
		child := branch.children[idx]
		if i == 0 {
			links[branch.index] = BvhLink{Accept: child.index, Cancel: cancel}
		}

		nextIndex := cancel
		if i < nChildren-1 {
			nextIdx := i + 1
			if reverse {
				nextIdx = invI - 1
			}
			nextIndex = branch.children[nextIdx].index
		}
		saveTraversalLinks(signs, child, nextIndex, links)
	}
}

// BuildGeneric builds a BVH over an arbitrary set of leaves, appending its
// nodes and links to bc, and is the common code path behind both BuildBLAS
// and BuildTLAS.
func BuildGeneric(leaves []Leaf, bc *Buffers) (Bvh, error) {
	if len(leaves) == 0 {
		return Bvh{}, ErrEmptyLeafSet
	}

	root := &buildNode{
		min: vecmath.Vec3{X: math.MaxFloat32, Y: math.MaxFloat32, Z: math.MaxFloat32},
		max: vecmath.Vec3{X: -math.MaxFloat32, Y: -math.MaxFloat32, Z: -math.MaxFloat32},
	}
	for _, l := range leaves {
		root.min = root.min.Min(l.Min)
		root.max = root.max.Max(l.Max)
	}

	work := make([]Leaf, len(leaves))
	copy(work, leaves)
	buildRecursiveSAH(work, root)

	b := Bvh{NodeOffset: uint32(len(bc.Nodes))}
	traverseBFS(root, &bc.Nodes)
	b.NodeCount = uint32(len(bc.Nodes)) - b.NodeOffset

	linkBase := len(bc.Links)
	bc.Links = append(bc.Links, make([]BvhLink, 8*int(b.NodeCount))...)
	for i := 0; i < 8; i++ {
		signs := [3]bool{i&1 != 0, i&2 != 0, i&4 != 0}
		start := linkBase + i*int(b.NodeCount)
		saveTraversalLinks(signs, root, 0xFFFFFFFF, bc.Links[start:start+int(b.NodeCount)])
	}

	return b, nil
}

// TriangleBounds returns the AABB of one triangle, used by BuildBLAS to
// avoid depending on any particular mesh representation.
type TriangleBounds func(triangle int) (min, max vecmath.Vec3)

// BuildBLAS builds a bottom-level BVH over triangleCount triangles, whose
// bounds are supplied by bounds.
func BuildBLAS(triangleCount int, bounds TriangleBounds, bc *Buffers) (Bvh, error) {
	leaves := make([]Leaf, triangleCount)
	for i := 0; i < triangleCount; i++ {
		min, max := bounds(i)
		leaves[i] = Leaf{Min: min, Max: max, Index: uint32(i)}
	}
	return BuildGeneric(leaves, bc)
}

// Instance is one entry of a top-level BVH: a reference to a BLAS and the
// transform placing it in the scene.
type Instance struct {
	Blas      Bvh
	Transform vecmath.Mat4
}

// BuildTLAS builds a top-level BVH over the given instances, transforming
// each instance's BLAS root bounds into world space to get its leaf AABB.
// bcIn is where the instance BLASes live; bcOut is where the new TLAS nodes
// and links are appended (the two are typically the same Buffers).
func BuildTLAS(instances []Instance, bcIn *Buffers, bcOut *Buffers) (Bvh, error) {
	leaves := make([]Leaf, len(instances))
	for i, inst := range instances {
		root := bcIn.Nodes[inst.Blas.NodeOffset]
		box := struct{ Min, Max vecmath.Vec3 }{root.Min, root.Max}

		corners := [8]vecmath.Vec3{}
		for a := 0; a < 8; a++ {
			x := box.Min.X
			if a&1 != 0 {
				x = box.Max.X
			}
			y := box.Min.Y
			if a&2 != 0 {
				y = box.Max.Y
			}
			z := box.Min.Z
			if a&4 != 0 {
				z = box.Max.Z
			}
			corners[a] = inst.Transform.MulPoint(vecmath.Vec3{X: x, Y: y, Z: z})
		}

		leaf := Leaf{Index: uint32(i)}
		leaf.Min, leaf.Max = corners[0], corners[0]
		for _, c := range corners[1:] {
			leaf.Min = leaf.Min.Min(c)
			leaf.Max = leaf.Max.Max(c)
		}
		leaves[i] = leaf
	}
	return BuildGeneric(leaves, bcOut)
}
