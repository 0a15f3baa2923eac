package hull

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/pool"
)

// unitCube returns a single-brush unit cube with six quad faces, CCW
// wound looking from outside, one texgen/material per face.
func unitCube() geomtypes.Brush {
	v := []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	mkFace := func(id int, n mgl32.Vec3, d float32, pts ...int) geomtypes.Face {
		plane := geomtypes.Plane{Normal: n, Distance: d}
		return geomtypes.Face{
			ID:     id,
			Plane:  plane,
			Material: "rock",
			Texgen: geomtypes.Texgen{PlaneX: plane, PlaneY: plane},
			Points: pts,
		}
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

func TestExportUnitCube(t *testing.T) {
	cfg := config.Default()
	pools := pool.New(cfg)
	surfaces := NewSurfacePool()

	h := Export(unitCube(), pools, surfaces, cfg)

	assert.Equal(t, 8, len(h.PointIndices))
	assert.Equal(t, 6, len(h.PlaneIndices))
	assert.Equal(t, 6, len(h.SurfaceIndices))
	assert.Equal(t, 6, surfaces.Len())
	require.Len(t, h.EmitStringIndices, 8)

	// Every cube corner touches exactly 3 faces and shares a plane with
	// none of them (no two adjacent cube faces are coplanar), so each
	// point's own emit string should describe exactly 3 polys.
	blob := pools.Emit.Bytes()
	for _, off := range h.EmitStringIndices {
		numPoints := int(blob[off])
		numEdges := int(blob[off+1+numPoints])
		polyCountOff := off + 1 + numPoints + 1 + 2*numEdges
		assert.Equal(t, 3, int(blob[polyCountOff]), "each cube corner touches exactly 3 faces")
	}

	// Not every vertex shares the same adjacency (opposite corners touch
	// entirely disjoint face triples), so offsets must not all collapse
	// to one shared blob.
	distinct := map[int]bool{}
	for _, off := range h.EmitStringIndices {
		distinct[off] = true
	}
	assert.Greater(t, len(distinct), 1, "distinct cube corners must not all intern to the same emit string")
}

func TestExportMBOnlySkipsCollisionData(t *testing.T) {
	cfg := config.Default()
	cfg.MBOnly = true
	pools := pool.New(cfg)
	surfaces := NewSurfacePool()

	h := Export(unitCube(), pools, surfaces, cfg)

	assert.Nil(t, h.PointIndices)
	assert.Nil(t, h.EmitStringIndices)
	assert.Nil(t, h.PolyPointIndices)
	// Surfaces and their plane indices are still produced under mb_only.
	assert.Equal(t, 6, len(h.SurfaceIndices))
	assert.Equal(t, 6, surfaces.Len())
}

func TestFanReorderPreservesFirstPointAndLength(t *testing.T) {
	in := []int{10, 20, 30, 40, 50}
	out := fanReorder(in)
	require.Len(t, out, len(in))
	assert.Equal(t, in[0], out[0])

	seen := map[int]bool{}
	for _, v := range out {
		seen[v] = true
	}
	for _, v := range in {
		assert.True(t, seen[v])
	}
}
