package audit

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/bsp"
	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/workpool"
)

// unitCubeBrush mirrors the fixture package bsp's own tests build: a
// single axis-aligned unit cube whose six face planes are exactly the
// plane list bsp.Build hands back for a one-brush scene, so probe plane
// IDs below can be written as plain face indices.
func unitCubeBrush() geomtypes.Brush {
	v := []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	mkFace := func(fid int, n mgl32.Vec3, d float32, pts ...int) geomtypes.Face {
		return geomtypes.Face{ID: fid, Plane: geomtypes.Plane{Normal: n, Distance: d}, Points: pts}
	}
	return geomtypes.Brush{
		ID:       1,
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

// countLeaves walks the tree counting interior nodes and solid leaves,
// ignoring empty leaves, to check the tree shape spec scenario 1
// describes ("BSP with exactly 6 internal nodes and 1 solid leaf").
func countLeaves(n *bsp.Node) (interior, solid int) {
	if n == nil {
		return 0, 0
	}
	if n.PlaneIndex == -1 {
		if n.Solid {
			return 0, 1
		}
		return 0, 0
	}
	fi, fs := countLeaves(n.Front)
	bi, bs := countLeaves(n.Back)
	return 1 + fi + bi, fs + bs
}

func TestRunAuditsUnitCubeAtFullCoverage(t *testing.T) {
	cfg := config.Default()
	cfg.SplitMethod = config.SplitExhaustive
	pool := workpool.New(2)
	root, planes := bsp.Build([]geomtypes.Brush{unitCubeBrush()}, cfg, pool, nil)
	require.NotNil(t, root)

	interiorCount, solidLeafCount := countLeaves(root)
	assert.Equal(t, 6, interiorCount)
	assert.Equal(t, 1, solidLeafCount)

	// One probe per face: an interior point just inside the face,
	// pulled back along the outward normal so the ray cast in Run
	// (which pushes further outward by rayLength) crosses the face
	// from outside to in.
	type faceDef struct {
		planeID  int
		centroid mgl32.Vec3
		normal   mgl32.Vec3
	}
	faces := []faceDef{
		{0, mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec3{0, 0, -1}},
		{1, mgl32.Vec3{0.5, 0.5, 1}, mgl32.Vec3{0, 0, 1}},
		{2, mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec3{0, -1, 0}},
		{3, mgl32.Vec3{0.5, 1, 0.5}, mgl32.Vec3{0, 1, 0}},
		{4, mgl32.Vec3{0, 0.5, 0.5}, mgl32.Vec3{-1, 0, 0}},
		{5, mgl32.Vec3{1, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}},
	}

	var probes []Probe
	for _, f := range faces {
		inward := f.centroid.Sub(f.normal.Mul(0.05))
		probes = append(probes, Probe{PlaneID: f.planeID, Interior: inward})
	}

	rep := Run(root, planes, probes)
	assert.Equal(t, 6, rep.Total)
	assert.Equal(t, 100.0, rep.HitPercent())
	assert.GreaterOrEqual(t, rep.BalanceFactor, -3)
	assert.LessOrEqual(t, rep.BalanceFactor, 3)
}

func TestHitPercentIsHundredWithNoProbes(t *testing.T) {
	rep := Report{Total: 0, Hit: 0}
	assert.Equal(t, 100.0, rep.HitPercent())
}

func TestHitPercentComputesPartialCoverage(t *testing.T) {
	rep := Report{Total: 4, Hit: 1}
	assert.Equal(t, 25.0, rep.HitPercent())
}
