// Package lightmap bakes static Point/Omni lights (package lightentity)
// into a 256x256 atlas per spec §4.6: project each surface onto its
// dominant axis, bin-pack its UV rectangle into the atlas, rasterize
// per-lumel irradiance with a BSP shadow-ray occlusion test, then
// bleed-fill the unrasterized border and box-blur the result. PNG
// encoding of the finished pages is done by package dif. Grounded on
// lightmap.rs's Grid/LightMap/barycentric rasterizer and on the
// teacher's texture-atlas packer (mod_atlas.go) for the bin-packing
// shape; the bleed/blur post pass copies each page with
// golang.org/x/image/draw the way the teacher composites texture pages.
package lightmap

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"

	"github.com/diforge/difc/internal/bsp"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/lightentity"
)

// Lumel dimension per atlas page, fixed by the runtime format (spec §4.6).
const AtlasSize = 256

// StaticLight is a bakeable light already reduced to what rasterization
// needs: a world position, color, and intensity. Radius holds the light's
// intensity and scales irradiance as Radius/distance².
type StaticLight struct {
	Position mgl32.Vec3
	Color    color.NRGBA
	Radius   float32
}

// CollectStatic filters lights down to the ones the lightmap compiler can
// bake (spec §4.6: only light_point and light_omni contribute).
func CollectStatic(lights []lightentity.Light, positions []mgl32.Vec3) []StaticLight {
	var out []StaticLight
	for i, l := range lights {
		col, intensity, err := l.Bakeable()
		if err != nil {
			continue
		}
		out = append(out, StaticLight{Position: positions[i], Color: col, Radius: intensity})
	}
	return out
}

// Rect is a packed UV rectangle within the atlas, in lumel units.
type Rect struct{ X, Y, W, H int }

func (r Rect) intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Surface is one exported surface's lightmap input: its world-space
// winding (the same points package hull exported), the surface's packed
// UV rect once Pack has run, and the placement metadata spec §3/§4.6
// attach to every surface record (st_enc/final_word, tex-gen distances,
// atlas placement). TexGenDistS/TexGenDistT only carry the -desired_start
// term until Pack assigns Rect.X/Y; the caller adds offset_x/256 and
// offset_y/256 afterward (spec §4.6 "Atlas packing").
type Surface struct {
	Winding []mgl32.Vec3
	Rect    Rect

	STEnc                    int
	FinalWord                uint32
	TexGenDistS, TexGenDistT float32

	axisU, axisV mgl32.Vec3
	origin       mgl32.Vec3
}

// projectDominantAxis picks the (sc, tc) basis spec §4.6 step 1 describes:
// the axis with the largest |normal·axis| is dropped, and the remaining
// two are paired by a fixed 6-case mapping keyed on which axis dominates
// and the sign of the normal along it, recorded as st_enc ∈ {0..5}. Not
// grounded in the original source — lightmap.rs's LightmapSurface takes
// sc/tc as already-computed fields and builder.rs hardcodes final_word to
// 0, so this mapping is this compiler's own, built straight from spec
// §4.6's textual description.
func projectDominantAxis(normal mgl32.Vec3) (sc, tc mgl32.Vec3, stEnc int) {
	ax, ay, az := math.Abs(float64(normal.X())), math.Abs(float64(normal.Y())), math.Abs(float64(normal.Z()))
	switch {
	case ax >= ay && ax >= az:
		if normal.X() >= 0 {
			return mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}, 0
		}
		return mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}, 1
	case ay >= ax && ay >= az:
		if normal.Y() >= 0 {
			return mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, 2
		}
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, 3
	default:
		if normal.Z() >= 0 {
			return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, 4
		}
		return mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, 5
	}
}

const lumelScale = 0.25 // world units per lumel at LumelScale == 1.0

// expandLumelMin/expandLumelMax implement spec §4.6 step 2's half-lumel
// rounding rule: a bound whose fractional part is under half a lumel
// rounds one whole lumel further away from the winding, otherwise it
// rounds to the nearest lumel boundary already covering it.
func expandLumelMin(v float64) int {
	fl := math.Floor(v)
	if v-fl < 0.5 {
		return int(fl) - 1
	}
	return int(fl)
}

func expandLumelMax(v float64) int {
	fl := math.Floor(v)
	cl := math.Ceil(v)
	if v-fl < 0.5 {
		return int(cl) + 1
	}
	return int(cl)
}

func log2Round(v int) int {
	if v <= 0 {
		return 0
	}
	return int(math.Round(math.Log2(float64(v))))
}

// BuildSurface projects winding (in world space) onto its dominant axis
// and sizes its lumel rectangle from the resulting UV extent, following
// spec §4.6 steps 1-3. Bounds are measured as absolute dot products
// against the world axes (sc/tc are themselves world axes, so this is
// already a world-space coordinate, not one relative to the winding) so
// that the desired_start values recorded into the tex-gen distances are
// meaningful independent of which surface they came from.
func BuildSurface(winding []mgl32.Vec3, normal mgl32.Vec3, scale float32) Surface {
	sc, tc, stEnc := projectDominantAxis(normal)
	minS, minT := float32(math.Inf(1)), float32(math.Inf(1))
	maxS, maxT := float32(math.Inf(-1)), float32(math.Inf(-1))
	for _, p := range winding {
		ps, pt := p.Dot(sc), p.Dot(tc)
		minS, maxS = fmin(minS, ps), fmax(maxS, ps)
		minT, maxT = fmin(minT, pt), fmax(maxT, pt)
	}

	lumelWorldSize := lumelScale * scale
	if lumelWorldSize == 0 {
		lumelWorldSize = lumelScale
	}

	startS := expandLumelMin(float64(minS / lumelWorldSize))
	endS := expandLumelMax(float64(maxS / lumelWorldSize))
	startT := expandLumelMin(float64(minT / lumelWorldSize))
	endT := expandLumelMax(float64(maxT / lumelWorldSize))

	w := int(math.Floor(float64(endS-startS) + 0.5))
	h := int(math.Floor(float64(endT-startT) + 0.5))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	invScale := int(math.Round(256 * float64(lumelWorldSize)))
	finalWord := uint32(stEnc<<13) | uint32(log2Round(invScale)&63)<<6 | uint32(log2Round(invScale)&63)

	origin := sc.Mul(float32(startS) * lumelWorldSize).Add(tc.Mul(float32(startT) * lumelWorldSize))

	return Surface{
		Winding:     winding,
		axisU:       sc,
		axisV:       tc,
		origin:      origin,
		Rect:        Rect{W: w, H: h},
		STEnc:       stEnc,
		FinalWord:   finalWord,
		TexGenDistS: -float32(startS) / 256,
		TexGenDistT: -float32(startT) / 256,
	}
}

func fmin(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func fmax(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Pack bin-packs every surface's rect into one or more AtlasSize square
// pages using a shelf packer, the simplest bin packer that keeps same-row
// rects aligned the way the teacher's atlas builder does for sprite
// sheets. Returns the page index each surface landed on.
func Pack(surfaces []*Surface) (pages []int, pageCount int) {
	type shelf struct{ y, h, x int }
	var shelves []shelf
	pages = make([]int, len(surfaces))
	page := 0

	place := func(s *Surface) bool {
		for i := range shelves {
			sh := &shelves[i]
			if s.Rect.H > sh.h {
				continue
			}
			if sh.x+s.Rect.W > AtlasSize {
				continue
			}
			s.Rect.X, s.Rect.Y = sh.x, sh.y
			sh.x += s.Rect.W
			return true
		}
		y := 0
		if len(shelves) > 0 {
			last := shelves[len(shelves)-1]
			y = last.y + last.h
		}
		if y+s.Rect.H > AtlasSize || s.Rect.W > AtlasSize {
			return false
		}
		shelves = append(shelves, shelf{y: y, h: s.Rect.H, x: s.Rect.W})
		s.Rect.X, s.Rect.Y = 0, y
		return true
	}

	for i, s := range surfaces {
		if !place(s) {
			page++
			shelves = nil
			place(s)
		}
		pages[i] = page
	}
	return pages, page + 1
}

// Rasterize renders every surface's lumels into its atlas page: each
// lumel's world position is back-projected from its UV cell, then
// irradiance from every static light is summed, attenuated by a shadow
// ray cast through the BSP tree (a lumel in the dark side of any solid
// leaf between it and the light contributes nothing from that light).
func Rasterize(surfaces []Surface, pageOf []int, lights []StaticLight, root *bsp.Node, planes []geomtypes.Plane, scale float32, pageCount int) []*image.NRGBA {
	imgs := make([]*image.NRGBA, pageCount)
	for i := range imgs {
		imgs[i] = image.NewNRGBA(image.Rect(0, 0, AtlasSize, AtlasSize))
	}

	for si, s := range surfaces {
		img := imgs[pageOf[si]]
		for ly := 0; ly < s.Rect.H; ly++ {
			for lx := 0; lx < s.Rect.W; lx++ {
				world := s.origin.
					Add(s.axisU.Mul(float32(lx) * lumelScale * scale)).
					Add(s.axisV.Mul(float32(ly) * lumelScale * scale))

				var r, g, b float32
				for _, lt := range lights {
					toLight := lt.Position.Sub(world)
					dist := toLight.Len()
					if dist < 1e-4 {
						continue
					}
					if root != nil && shadowed(root, planes, world, lt.Position) {
						continue
					}
					att := lt.Radius / (dist * dist)
					r += float32(lt.Color.R) * att
					g += float32(lt.Color.G) * att
					b += float32(lt.Color.B) * att
				}
				img.SetNRGBA(s.Rect.X+lx, s.Rect.Y+ly, color.NRGBA{R: clamp8(r), G: clamp8(g), B: clamp8(b), A: 255})
			}
		}
	}
	return imgs
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// shadowed reports whether the segment from world to lightPos passes
// through any solid BSP leaf, using the same traversal package bsp's
// coverage auditor relies on — a ray that enters solid geometry before
// reaching its target is occluded. planeID -1 never matches a real face,
// so a solid leaf reached directly does not count as a hit; the cast
// reports occlusion only where the traversal, after crossing a node's
// plane, retargets to that plane and finds it in a solid leaf.
func shadowed(root *bsp.Node, planes []geomtypes.Plane, world, lightPos mgl32.Vec3) bool {
	return occluded(root, world, lightPos, planes)
}

func occluded(n *bsp.Node, start, end mgl32.Vec3, planes []geomtypes.Plane) bool {
	return n.CastRay(start, end, -1, planes)
}

// bleedProbeOrder is the 8-neighborhood search order spec §4.6 fixes for
// bleed-fill: W, E, N, S, then the four diagonals.
var bleedProbeOrder = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {1, 1}, {-1, 1},
}

// BleedFill adopts each unfilled (alpha==0) lumel's whole pixel from the
// first rasterized (alpha!=0) neighbor found in bleedProbeOrder, so
// bilinear sampling at a UV seam doesn't pick up the atlas's black
// background, then box-blurs interior lumels (border lumels pass
// through unchanged) to soften per-lumel banding. Uses
// golang.org/x/image/draw's Draw for the initial copy the way the
// teacher's atlas compositor copies source pages before touching them.
func BleedFill(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, img.Bounds(), img, image.Point{}, draw.Src)
	bleedFillPass(out)
	boxBlur3x3(out)
	return out
}

func bleedFillPass(img *image.NRGBA) {
	b := img.Bounds()
	src := image.NewNRGBA(b)
	copy(src.Pix, img.Pix)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.NRGBAAt(x, y).A != 0 {
				continue
			}
			for _, d := range bleedProbeOrder {
				nx, ny := x+d[0], y+d[1]
				if nx < b.Min.X || nx >= b.Max.X || ny < b.Min.Y || ny >= b.Max.Y {
					continue
				}
				if c := src.NRGBAAt(nx, ny); c.A != 0 {
					img.SetNRGBA(x, y, c)
					break
				}
			}
		}
	}
}

// boxBlur3x3 averages each interior lumel (one with a full 3x3
// neighborhood inside the page) against its 8 neighbors; border lumels
// are left exactly as bleedFillPass produced them (spec §4.6 "border
// pixels copy through").
func boxBlur3x3(img *image.NRGBA) {
	b := img.Bounds()
	src := image.NewNRGBA(b)
	copy(src.Pix, img.Pix)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var r, g, bch, a, n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					c := src.NRGBAAt(x+dx, y+dy)
					r += int(c.R)
					g += int(c.G)
					bch += int(c.B)
					a += int(c.A)
					n++
				}
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bch / n), A: uint8(a / n)})
		}
	}
}
