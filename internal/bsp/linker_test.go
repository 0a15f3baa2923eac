package bsp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/pool"
)

func TestChildRefPackEncodesLeafAndSolidBits(t *testing.T) {
	empty := emptyLeaf()
	assert.Equal(t, uint32(1<<31), empty.Pack())

	solid := ChildRef{Leaf: true, Solid: true, Index: 7}
	assert.Equal(t, uint32(1<<31|1<<30|7), solid.Pack())

	interior := ChildRef{Index: 42}
	assert.Equal(t, uint32(42), interior.Pack())
}

func TestLinkReservesNodeIndexBeforeRecursing(t *testing.T) {
	// A two-level tree: root splits on plane 0, its front child splits on
	// plane 1. Node array order must be [root, front] since link()
	// reserves root's slot before recursing into either child.
	planes := []geomtypes.Plane{
		{Normal: mgl32.Vec3{1, 0, 0}, Distance: 0},
		{Normal: mgl32.Vec3{0, 1, 0}, Distance: 0},
	}
	leafEmpty := nodeFromBrushes(nil, false)
	leafSolid := nodeFromBrushes(nil, true)
	front := &Node{PlaneIndex: 1, Front: leafEmpty, Back: leafSolid}
	root := &Node{PlaneIndex: 0, Front: front, Back: leafEmpty}

	pp := pool.NewPlanePool(1e-5, 1e-5)
	linker := NewLinker(pp, func(owner, sourceID int) (int, bool) { return 0, false })

	ref := linker.Link(root, planes)

	require.False(t, ref.Leaf)
	require.Len(t, linker.Nodes, 2)
	assert.Equal(t, 0, ref.Index, "root must be the first reserved slot")
	assert.Equal(t, 1, linker.Nodes[0].Front.Index, "front child linked after root's slot was reserved")
}

func TestLinkLeafDedupsSurfacesAndSkipsCapFaces(t *testing.T) {
	b := brush{
		owner: 1,
		faces: []face{
			{planeID: 0, sourceID: 5},
			{planeID: 1, sourceID: 5}, // same source face seen twice
			{planeID: 2, sourceID: -1}, // synthesized cap, never a surface
		},
	}
	n := &Node{PlaneIndex: -1, Solid: true, Brushes: []brush{b}}

	pp := pool.NewPlanePool(1e-5, 1e-5)
	linker := NewLinker(pp, func(owner, sourceID int) (int, bool) {
		if owner == 1 && sourceID == 5 {
			return 9, true
		}
		return 0, false
	})

	ref := linker.Link(n, nil)

	require.True(t, ref.Leaf)
	require.True(t, ref.Solid)
	require.Len(t, linker.SolidLeafSurfaces, 1)
	assert.Equal(t, []int{9}, linker.SolidLeafSurfaces[0])
}

func TestLinkEmptyLeafHasNoSurfaces(t *testing.T) {
	n := nodeFromBrushes(nil, false)
	pp := pool.NewPlanePool(1e-5, 1e-5)
	linker := NewLinker(pp, func(owner, sourceID int) (int, bool) { return 0, false })

	ref := linker.Link(n, nil)
	assert.Equal(t, emptyLeaf(), ref)
	assert.Empty(t, linker.SolidLeafSurfaces)
}
