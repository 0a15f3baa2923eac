package bsp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/workpool"
)

func unitCubeBrush(id int, offset mgl32.Vec3) geomtypes.Brush {
	v := []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	for i := range v {
		v[i] = v[i].Add(offset)
	}
	mkFace := func(fid int, n mgl32.Vec3, d float32, pts ...int) geomtypes.Face {
		return geomtypes.Face{ID: fid, Plane: geomtypes.Plane{Normal: n, Distance: d - n.Dot(offset)}, Points: pts}
	}
	return geomtypes.Brush{
		ID:       id,
		Vertices: v,
		Faces: []geomtypes.Face{
			mkFace(0, mgl32.Vec3{0, 0, -1}, 0, 0, 3, 2, 1),
			mkFace(1, mgl32.Vec3{0, 0, 1}, -1, 4, 5, 6, 7),
			mkFace(2, mgl32.Vec3{0, -1, 0}, 0, 0, 1, 5, 4),
			mkFace(3, mgl32.Vec3{0, 1, 0}, -1, 3, 7, 6, 2),
			mkFace(4, mgl32.Vec3{-1, 0, 0}, 0, 0, 4, 7, 3),
			mkFace(5, mgl32.Vec3{1, 0, 0}, -1, 1, 2, 6, 5),
		},
	}
}

func TestBuildSplitNoneProducesSentinelTree(t *testing.T) {
	cfg := config.Default()
	cfg.SplitMethod = config.SplitNone
	root, _ := Build([]geomtypes.Brush{unitCubeBrush(1, mgl32.Vec3{})}, cfg, nil, nil)

	require.NotNil(t, root)
	assert.Equal(t, 0, root.PlaneIndex)
	assert.NotNil(t, root.Front)
	assert.NotNil(t, root.Back)
}

func TestBuildExhaustiveSeparatesTwoDisjointCubes(t *testing.T) {
	cfg := config.Default()
	cfg.SplitMethod = config.SplitExhaustive
	brushes := []geomtypes.Brush{
		unitCubeBrush(1, mgl32.Vec3{0, 0, 0}),
		unitCubeBrush(2, mgl32.Vec3{10, 0, 0}),
	}
	pool := workpool.New(2)
	root, planes := Build(brushes, cfg, pool, nil)

	require.NotNil(t, root)
	assert.NotEmpty(t, planes)
	// The two cubes never share a face plane, so the tree must have split
	// at least once to separate them into different leaves.
	assert.NotEqual(t, -1, root.PlaneIndex)
}

func TestCalcPlaneRatingRewardsCoplanarFaces(t *testing.T) {
	cfg := config.Default()
	cube := unitCubeBrush(1, mgl32.Vec3{})
	var planes []geomtypes.Plane
	b := fromGeomtypes(cube, &planes)
	n := nodeFromBrushes([]brush{b}, false)

	// planeID 0 is a real face of the brush: rating should be strongly
	// positive (coplanar bonus, no split penalty).
	score := calcPlaneRating(n, 0, planes, cfg.Epsilon)
	assert.Greater(t, score, 0)
}
