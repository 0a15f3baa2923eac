// Package builder orchestrates one detail level's worldspawn brushes
// through every compiler stage — canonicalize, export hulls, build and
// link the BSP, index coord bins — and flushes a new dif.Interior
// whenever the running face count would cross config.MaxFacesPerInterior
// (spec §6 "Interior splitting"). It is the glue the teacher's app-layer
// "System.Update walks every subsystem in order" pattern generalizes
// into a batch pipeline instead of a per-frame one.
package builder

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/audit"
	"github.com/diforge/difc/internal/bsp"
	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/coordbin"
	"github.com/diforge/difc/internal/dif"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/hull"
	"github.com/diforge/difc/internal/lightmap"
	"github.com/diforge/difc/internal/pool"
	"github.com/diforge/difc/internal/progress"
	"github.com/diforge/difc/internal/workpool"
)

// Result is one completed interior plus the raycast-auditable BSP data
// the CLI can feed to package audit afterward, the baked lightmap atlas
// pages for this interior, and the coverage audit already run against it.
type Result struct {
	Interior      dif.Interior
	Root          *bsp.Node
	Planes        []geomtypes.Plane
	LightmapPages []*image.NRGBA
	Audit         audit.Report
}

// Builder accumulates brushes for one interior (or interior fragment,
// once MaxFacesPerInterior forces a split) and flushes them into a
// Result on demand.
type Builder struct {
	cfg       config.BuildConfig
	pools     *pool.Pools
	surfs     *hull.SurfacePool
	brushes   []geomtypes.Brush
	faceCount int

	lights  []lightmap.StaticLight
	ambient color.NRGBA

	workers  *workpool.Pool
	reporter *progress.Reporter
}

func New(cfg config.BuildConfig, workers *workpool.Pool, reporter *progress.Reporter) *Builder {
	return &Builder{
		cfg:     cfg,
		pools:   pool.New(cfg),
		surfs:   hull.NewSurfacePool(),
		ambient: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		workers: workers,
		reporter: reporter,
	}
}

// SetLights records the detail level's bakeable static lights (point/omni,
// already filtered and positioned by the caller via lightentity.Recognize
// + lightmap.CollectStatic) for Flush's lightmap pass.
func (b *Builder) SetLights(lights []lightmap.StaticLight) { b.lights = lights }

// SetAmbient records the detail level's ambient_color (spec §6), used as
// the lightmap fallback fill when BakeLightmaps is off or no static light
// was collected (spec §4.6 "Fallback").
func (b *Builder) SetAmbient(c color.NRGBA) { b.ambient = c }

// AddBrush queues a preprocessed brush for this interior fragment,
// reporting whether the caller should Flush before adding any more
// (the next brush's faces would cross MaxFacesPerInterior).
func (b *Builder) AddBrush(brush geomtypes.Brush) (shouldFlushFirst bool) {
	if b.faceCount+len(brush.Faces) > config.MaxFacesPerInterior && b.faceCount > 0 {
		return true
	}
	b.brushes = append(b.brushes, brush)
	b.faceCount += len(brush.Faces)
	return false
}

// Flush exports every queued brush's hull, builds and links the BSP,
// builds the coord-bin index, and returns the completed Result,
// resetting the Builder for the next interior fragment.
func (b *Builder) Flush() Result {
	hulls := make([]hull.Hull, len(b.brushes))
	for i, br := range b.brushes {
		hulls[i] = hull.Export(br, b.pools, b.surfs, b.cfg)
	}

	root, planes := bsp.Build(b.brushes, b.cfg, b.workers, b.reporter)

	brushFaceToHull := make(map[[2]int]int) // (brushID, faceID) -> hull index
	for i, br := range b.brushes {
		for _, f := range br.Faces {
			brushFaceToHull[[2]int{br.ID, f.ID}] = i
		}
	}
	lookup := func(brushOwner, faceSourceID int) (int, bool) {
		hi, ok := brushFaceToHull[[2]int{brushOwner, faceSourceID}]
		if !ok {
			return 0, false
		}
		h := hulls[hi]
		br := b.brushes[hi]
		for fi, f := range br.Faces {
			if f.ID == faceSourceID {
				if fi < len(h.SurfaceIndices) {
					return h.SurfaceIndices[fi], true
				}
			}
		}
		return 0, false
	}

	linker := bsp.NewLinker(b.pools.Planes, lookup)
	rootRef := linker.Link(root, planes)

	var bounds []coordbin.HullBounds
	var allMin, allMax mgl32.Vec3
	for i, h := range hulls {
		bounds = append(bounds, coordbin.HullBounds{Min: h.Min, Max: h.Max})
		if i == 0 {
			allMin, allMax = h.Min, h.Max
			continue
		}
		allMin = minv(allMin, h.Min)
		allMax = maxv(allMax, h.Max)
	}
	bins := coordbin.Build(bounds, allMin, allMax)

	auditReport := b.runAudit(root, planes, hulls)

	it := dif.Interior{
		Version:   b.cfg.DifVersion,
		Engine:    b.cfg.EngineVersion,
		Points:    b.pools.Points.Points(),
		Normals:   b.pools.Planes.Normals().Points(),
		Planes:    b.pools.Planes.Planes(),
		Texgens:   b.pools.Texgens.Texgens(),
		Materials: b.pools.Materials.Names(),
		EmitBytes: b.pools.Emit.Bytes(),
		Surfaces:  b.surfs.Surfaces(),
		Hulls:     hulls,
		Nodes:     linker.Nodes,
		SolidLeafSurfaces: linker.SolidLeafSurfaces,
		Root:      rootRef,
		CoordBins: bins,
	}

	pages := b.bakeLightmaps(it, root, planes)

	res := Result{Interior: it, Root: root, Planes: planes, LightmapPages: pages, Audit: auditReport}
	b.brushes = nil
	b.faceCount = 0
	b.pools = pool.New(b.cfg)
	b.surfs = hull.NewSurfacePool()
	return res
}

// runAudit builds one raycast probe per exported face (spec §4.7) and
// runs the coverage auditor against the just-built BSP tree. Probe
// plane IDs are derived the same way bsp.Build assigns them: one
// flat per-face-occurrence entry, in brush order then face order —
// fromGeomtypes in package bsp walks b.brushes identically, so the
// cumulative face offset at brush i, face j is exactly that face's
// planeID in the returned planes slice. Each probe's interior point is
// the face centroid moved probeDepth inward along the face normal.
func (b *Builder) runAudit(root *bsp.Node, planes []geomtypes.Plane, hulls []hull.Hull) audit.Report {
	const probeDepth = 0.05
	var probes []audit.Probe
	offset := 0
	for i, br := range b.brushes {
		h := hulls[i]
		for faceIdx, f := range br.Faces {
			planeID := offset + faceIdx
			if faceIdx >= len(h.SurfaceIndices) {
				continue
			}
			centroid := faceCentroid(br, f)
			inside := centroid.Sub(f.Plane.Normal.Mul(probeDepth))
			probes = append(probes, audit.Probe{PlaneID: planeID, Interior: inside})
		}
		offset += len(br.Faces)
	}
	return audit.Run(root, planes, probes)
}

func faceCentroid(br geomtypes.Brush, f geomtypes.Face) mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, pi := range f.Points {
		sum = sum.Add(br.Vertices[pi])
	}
	if len(f.Points) == 0 {
		return sum
	}
	return sum.Mul(1 / float32(len(f.Points)))
}

// bakeLightmaps runs the lightmap compiler over every exported surface
// of it (spec §4.6): project each winding onto its dominant axis, pack
// the resulting rectangles into atlas pages, rasterize static-light
// irradiance with BSP shadow occlusion, then bleed-fill and blur. When
// lightmap baking is off or no static light was collected, every page
// is filled flat with the detail level's ambient color instead (spec
// §4.6 "Fallback"); in that case no placement is written back onto
// it.Surfaces since there is nothing for a runtime reader to locate.
//
// it.Surfaces shares its backing array with b.surfs's own slice, so
// writing placement into it.Surfaces[i] here is visible to Flush's copy
// of it too — this is how Pack's atlas assignment reaches the DIF
// surface record dif.Write later encodes.
func (b *Builder) bakeLightmaps(it dif.Interior, root *bsp.Node, bspPlanes []geomtypes.Plane) []*image.NRGBA {
	if len(it.Surfaces) == 0 {
		return nil
	}
	if !b.cfg.BakeLightmaps || len(b.lights) == 0 {
		page := image.NewNRGBA(image.Rect(0, 0, lightmap.AtlasSize, lightmap.AtlasSize))
		fillAmbient(page, b.ambient)
		return []*image.NRGBA{page}
	}

	points := it.Points
	surfs := make([]lightmap.Surface, len(it.Surfaces))
	for i, s := range it.Surfaces {
		bareIdx, flipped := pool.Resolve(s.PlaneIndex)
		normal := it.Planes[bareIdx].Normal
		if flipped {
			normal = normal.Mul(-1)
		}
		winding := make([]mgl32.Vec3, len(s.WindingCollision))
		for j, pi := range s.WindingCollision {
			winding[j] = points[pi]
		}
		surfs[i] = lightmap.BuildSurface(winding, normal, b.cfg.LumelScale)
	}

	ptrs := make([]*lightmap.Surface, len(surfs))
	for i := range surfs {
		ptrs[i] = &surfs[i]
	}
	pageOf, pageCount := lightmap.Pack(ptrs)
	for i := range surfs {
		surfs[i] = *ptrs[i]
	}

	for i, s := range surfs {
		it.Surfaces[i].Lightmap = hull.LightmapPlacement{
			FinalWord:   s.FinalWord,
			TexGenDistS: s.TexGenDistS + float32(s.Rect.X)/256,
			TexGenDistT: s.TexGenDistT + float32(s.Rect.Y)/256,
			AtlasID:     pageOf[i],
			OffsetX:     s.Rect.X,
			OffsetY:     s.Rect.Y,
			Width:       s.Rect.W,
			Height:      s.Rect.H,
		}
	}

	imgs := lightmap.Rasterize(surfs, pageOf, b.lights, root, bspPlanes, b.cfg.LumelScale, pageCount)
	out := make([]*image.NRGBA, len(imgs))
	for i, img := range imgs {
		out[i] = lightmap.BleedFill(img)
	}
	return out
}

func fillAmbient(img *image.NRGBA, c color.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// Empty reports whether any brush is currently queued.
func (b *Builder) Empty() bool { return len(b.brushes) == 0 }

func minv(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{fmin(a.X(), b.X()), fmin(a.Y(), b.Y()), fmin(a.Z(), b.Z())}
}
func maxv(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{fmax(a.X(), b.X()), fmax(a.Y(), b.Y()), fmax(a.Z(), b.Z())}
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
