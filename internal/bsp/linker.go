package bsp

import (
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/pool"
)

// LinkedNode is one entry of the runtime, array-form BSP tree (spec
// §4.4): a plane index plus two tagged child references.
type LinkedNode struct {
	PlaneIndex int
	Front      ChildRef
	Back       ChildRef
}

// ChildRef is a BSP node's front/back reference: either another interior
// node index, a solid leaf (indexing into SolidLeafSurfaces), or the
// empty-leaf sentinel meaning "outside, no geometry". Packed as
// {leaf:1, solid:1, index:30} when written to the DIF binary form (spec
// §4.4); kept unpacked here for readability until the writer encodes it.
type ChildRef struct {
	Leaf  bool
	Solid bool
	Index int
}

func emptyLeaf() ChildRef { return ChildRef{Leaf: true, Solid: false, Index: 0} }

// Pack encodes the ref into the DIF 32-bit field layout.
func (c ChildRef) Pack() uint32 {
	v := uint32(c.Index) & 0x3FFFFFFF
	if c.Solid {
		v |= 1 << 30
	}
	if c.Leaf {
		v |= 1 << 31
	}
	return v
}

// FaceSurfaceLookup resolves a BSP-local brush/face occurrence back to
// its exported global surface index, as produced by package hull's
// Export (keyed by the owning geomtypes.Brush.ID and the face's original
// sourceID).
type FaceSurfaceLookup func(brushOwner, faceSourceID int) (surfaceIndex int, ok bool)

// Linker flattens a built Node tree into the array form the DIF writer
// emits, resolving each node's local, undeduplicated plane into the
// canonicalizer's global PlanePool and collecting each solid leaf's
// unique surface set.
//
// Grounded on builder.rs's export_bsp_node: interior nodes reserve their
// array slot before recursing into children so the index is stable
// regardless of subtree size, and a node whose pooled plane resolved to
// the negated orientation swaps its front/back children on write-back
// so the stored plane is always the positive-facing one.
type Linker struct {
	Nodes              []LinkedNode
	SolidLeafSurfaces  [][]int
	planes             *pool.PlanePool
	resolveSurface     FaceSurfaceLookup
}

func NewLinker(planes *pool.PlanePool, resolveSurface FaceSurfaceLookup) *Linker {
	return &Linker{planes: planes, resolveSurface: resolveSurface}
}

// Link resolves root into l.Nodes/l.SolidLeafSurfaces and returns the
// root's own child reference (so a single-leaf tree with no interior
// nodes at all is representable without a node array entry).
func (l *Linker) Link(root *Node, localPlanes []geomtypes.Plane) ChildRef {
	return l.link(root, localPlanes)
}

func (l *Linker) link(n *Node, localPlanes []geomtypes.Plane) ChildRef {
	if n == nil {
		return emptyLeaf()
	}
	if n.PlaneIndex == -1 {
		return l.linkLeaf(n)
	}

	idx := len(l.Nodes)
	l.Nodes = append(l.Nodes, LinkedNode{})

	frontRef := l.link(n.Front, localPlanes)
	backRef := l.link(n.Back, localPlanes)

	globalIdx, flipped := l.planes.Intern(localPlanes[n.PlaneIndex])
	if flipped {
		frontRef, backRef = backRef, frontRef
	}

	l.Nodes[idx] = LinkedNode{PlaneIndex: globalIdx, Front: frontRef, Back: backRef}
	return ChildRef{Leaf: false, Solid: false, Index: idx}
}

func (l *Linker) linkLeaf(n *Node) ChildRef {
	if !n.Solid {
		return emptyLeaf()
	}
	seen := make(map[int]bool)
	var surfaces []int
	for _, b := range n.Brushes {
		for _, f := range b.faces {
			if f.sourceID < 0 {
				continue // synthesized cap face, no exported surface
			}
			si, ok := l.resolveSurface(b.owner, f.sourceID)
			if !ok || seen[si] {
				continue
			}
			seen[si] = true
			surfaces = append(surfaces, si)
		}
	}
	if len(surfaces) == 0 {
		return emptyLeaf()
	}
	idx := len(l.SolidLeafSurfaces)
	l.SolidLeafSurfaces = append(l.SolidLeafSurfaces, surfaces)
	return ChildRef{Leaf: true, Solid: true, Index: idx}
}
