package lightmap

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/lightentity"
)

func TestBleedFillAdoptsWestNeighborFirst(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	// A 3x3 block of opaque red, with its center lumel left transparent.
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	img.SetNRGBA(2, 2, color.NRGBA{})

	out := BleedFill(img)

	center := out.NRGBAAt(2, 2)
	assert.NotZero(t, center.A, "bleed-filled lumel must no longer read as unfilled")
	assert.Equal(t, uint8(200), center.R, "should adopt its west neighbor's color first")
}

func TestBleedFillLeavesFullyFilledPageAlone(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		}
	}
	out := BleedFill(img)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, uint8(255), out.NRGBAAt(x, y).A)
		}
	}
}

func TestBoxBlurLeavesBorderLumelsUntouched(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 * (x + y)), A: 255})
		}
	}
	before := make([]color.NRGBA, 0, 9)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			before = append(before, img.NRGBAAt(x, y))
		}
	}

	boxBlur3x3(img)

	i := 0
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x == 1 && y == 1 {
				i++
				continue // the single interior lumel is expected to change
			}
			assert.Equal(t, before[i], img.NRGBAAt(x, y), "border lumel (%d,%d) must pass through unblurred", x, y)
			i++
		}
	}
}

func TestPackPlacesNonOverlappingRects(t *testing.T) {
	surfaces := []*Surface{
		{Rect: Rect{W: 100, H: 50}},
		{Rect: Rect{W: 100, H: 50}},
		{Rect: Rect{W: 200, H: 200}},
	}
	pages, count := Pack(surfaces)
	require.Equal(t, 3, len(pages))
	assert.GreaterOrEqual(t, count, 1)
	for i := range surfaces {
		for j := i + 1; j < len(surfaces); j++ {
			if pages[i] != pages[j] {
				continue
			}
			assert.False(t, surfaces[i].Rect.intersects(surfaces[j].Rect),
				"surfaces %d and %d share a page and overlap", i, j)
		}
	}
}

func TestBuildSurfaceProjectsOntoDominantAxis(t *testing.T) {
	winding := []mgl32.Vec3{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}
	s := BuildSurface(winding, mgl32.Vec3{0, 0, 1}, 1.0)
	assert.Greater(t, s.Rect.W, 0)
	assert.Greater(t, s.Rect.H, 0)
	// A +Z-dominant normal picks the st_enc==4 case (sc=X, tc=Y).
	assert.Equal(t, 4, s.STEnc)
	assert.NotZero(t, s.FinalWord)
}

func TestProjectDominantAxisCoversAllSixCases(t *testing.T) {
	cases := []struct {
		normal mgl32.Vec3
		stEnc  int
	}{
		{mgl32.Vec3{1, 0, 0}, 0},
		{mgl32.Vec3{-1, 0, 0}, 1},
		{mgl32.Vec3{0, 1, 0}, 2},
		{mgl32.Vec3{0, -1, 0}, 3},
		{mgl32.Vec3{0, 0, 1}, 4},
		{mgl32.Vec3{0, 0, -1}, 5},
	}
	seen := map[int]bool{}
	for _, c := range cases {
		sc, tc, stEnc := projectDominantAxis(c.normal)
		assert.Equal(t, c.stEnc, stEnc)
		// sc and tc must be distinct unit axes, neither equal to the
		// dropped dominant axis.
		assert.NotEqual(t, sc, tc)
		assert.Zero(t, sc.Dot(c.normal))
		assert.Zero(t, tc.Dot(c.normal))
		seen[stEnc] = true
	}
	assert.Len(t, seen, 6, "all six st_enc cases must be reachable")
}

func TestCollectStaticSkipsUnbakeableLights(t *testing.T) {
	assert.Empty(t, CollectStatic(nil, nil))

	lights := []lightentity.Light{{Kind: lightentity.KindSpot}, {Kind: lightentity.KindStrobe}}
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}}
	out := CollectStatic(lights, positions)
	assert.Empty(t, out)
}
