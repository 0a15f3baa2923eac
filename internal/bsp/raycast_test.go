package bsp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/diforge/difc/internal/geomtypes"
)

func splitPlaneXAxis() []geomtypes.Plane {
	return []geomtypes.Plane{
		{Normal: mgl32.Vec3{1, 0, 0}, Distance: 0},
	}
}

func TestCastRayHitsMatchingFaceInSolidFrontLeaf(t *testing.T) {
	planes := splitPlaneXAxis()
	frontLeaf := &Node{
		PlaneIndex: -1,
		Solid:      true,
		Brushes:    []brush{{faces: []face{{planeID: 5}}}},
	}
	backLeaf := nodeFromBrushes(nil, false)
	root := &Node{PlaneIndex: 0, Front: frontLeaf, Back: backLeaf}

	hit := root.CastRay(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{-1, 0, 0}, 5, planes)
	assert.True(t, hit)
}

func TestCastRayMissesOnUnrelatedPlaneID(t *testing.T) {
	planes := splitPlaneXAxis()
	frontLeaf := &Node{
		PlaneIndex: -1,
		Solid:      true,
		Brushes:    []brush{{faces: []face{{planeID: 5}}}},
	}
	backLeaf := nodeFromBrushes(nil, false)
	root := &Node{PlaneIndex: 0, Front: frontLeaf, Back: backLeaf}

	hit := root.CastRay(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{-1, 0, 0}, 99, planes)
	assert.False(t, hit)
}

func TestCastRayStaysOutsideThroughEmptyLeaf(t *testing.T) {
	planes := splitPlaneXAxis()
	frontLeaf := nodeFromBrushes(nil, false)
	backLeaf := nodeFromBrushes(nil, false)
	root := &Node{PlaneIndex: 0, Front: frontLeaf, Back: backLeaf}

	hit := root.CastRay(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{2, 0, 0}, 5, planes)
	assert.False(t, hit)
}
