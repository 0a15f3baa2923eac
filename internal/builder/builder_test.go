package builder

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/lightmap"
	"github.com/diforge/difc/internal/progress"
	"github.com/diforge/difc/internal/workpool"
)

func unitCubeBrush(id int) geomtypes.Brush {
	v := []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	mkFace := func(fid int, n mgl32.Vec3, d float32, pts ...int) geomtypes.Face {
		return geomtypes.Face{ID: fid, Plane: geomtypes.Plane{Normal: n, Distance: d}, Points: pts}
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

func TestFlushAuditsThePublishedInterior(t *testing.T) {
	cfg := config.Default()
	cfg.BakeLightmaps = false
	wp := workpool.New(2)
	b := New(cfg, wp, progress.New(nil, "test"))

	require.False(t, b.AddBrush(unitCubeBrush(1)))
	res := b.Flush()

	assert.Equal(t, 6, res.Audit.Total)
	assert.Equal(t, 100.0, res.Audit.HitPercent())
	assert.NotEmpty(t, res.Interior.Surfaces)
	assert.True(t, b.Empty())
}

func TestFlushFillsAmbientWhenLightmapsAreOff(t *testing.T) {
	cfg := config.Default()
	cfg.BakeLightmaps = false
	wp := workpool.New(2)
	b := New(cfg, wp, progress.New(nil, "test"))
	b.SetAmbient(color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	b.AddBrush(unitCubeBrush(1))
	res := b.Flush()

	require.Len(t, res.LightmapPages, 1)
	page := res.LightmapPages[0]
	c := page.NRGBAAt(page.Bounds().Min.X, page.Bounds().Min.Y)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, c)
}

func TestFlushBakesLightmapsWhenLightsArePresent(t *testing.T) {
	cfg := config.Default()
	cfg.BakeLightmaps = true
	wp := workpool.New(2)
	b := New(cfg, wp, progress.New(nil, "test"))
	b.SetLights([]lightmap.StaticLight{
		{Position: mgl32.Vec3{0.5, 0.5, 5}, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}, Radius: 10},
	})

	b.AddBrush(unitCubeBrush(1))
	res := b.Flush()

	require.NotEmpty(t, res.LightmapPages)
	// The top face (normal +Z) faces the light directly and should pick up
	// some irradiance somewhere in its rasterized rect.
	page := res.LightmapPages[0]
	var sawLit bool
	bounds := page.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !sawLit; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if page.NRGBAAt(x, y).R > 0 {
				sawLit = true
				break
			}
		}
	}
	assert.True(t, sawLit, "expected at least one lit lumel in the baked atlas")
}

func TestFlushWritesLightmapPlacementBackOntoSurfaces(t *testing.T) {
	cfg := config.Default()
	cfg.BakeLightmaps = true
	wp := workpool.New(2)
	b := New(cfg, wp, progress.New(nil, "test"))
	b.SetLights([]lightmap.StaticLight{
		{Position: mgl32.Vec3{0.5, 0.5, 5}, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}, Radius: 10},
	})

	b.AddBrush(unitCubeBrush(1))
	res := b.Flush()

	require.NotEmpty(t, res.Interior.Surfaces)
	for i, s := range res.Interior.Surfaces {
		assert.Greater(t, s.Lightmap.Width, 0, "surface %d missing packed lightmap width", i)
		assert.Greater(t, s.Lightmap.Height, 0, "surface %d missing packed lightmap height", i)
		assert.GreaterOrEqual(t, s.Lightmap.AtlasID, 0)
		assert.Less(t, s.Lightmap.AtlasID, len(res.LightmapPages))
	}
}

func TestAddBrushSignalsFlushBeforeExceedingFaceBudget(t *testing.T) {
	cfg := config.Default()
	wp := workpool.New(2)
	b := New(cfg, wp, progress.New(nil, "test"))
	b.faceCount = config.MaxFacesPerInterior - 1

	assert.True(t, b.AddBrush(unitCubeBrush(2)))
}
