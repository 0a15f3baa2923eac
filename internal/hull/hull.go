// Package hull exports each brush's convex point/plane/surface data and
// the runtime collision "emit string" encoding (spec §4.2), interning
// everything shared (points, planes, texgens, materials, emit bytes) into
// the canonicalizer pools so repeated geometry across brushes is stored
// once. Grounded on the original convex-hull exporter (builder.rs's
// export_convex_hull / export_surfaces / construct_emit_string) and on
// the teacher's mesh-export pass for the general "walk faces, intern
// everything, emit an index list" shape.
package hull

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/pool"
)

// Surface is one renderable, texture-mapped winding: a face's point
// winding plus its plane/texgen/material references, all already
// resolved to global pool indices. The Surfaces slice built across a
// whole interior is shared by every hull and by the BSP leaves (spec
// §4.3's solid-leaf surface collection references these by index).
type Surface struct {
	// PlaneIndex carries config.FlipBit when the surface faces against
	// its pooled plane's stored orientation.
	PlaneIndex int
	TexgenIndex int
	MaterialIdx int
	TexDiv      [2]int
	// WindingFan is the fan-reordered point list used for rendering.
	WindingFan []int
	// WindingCollision is the original CCW winding, global point indices.
	WindingCollision []int

	// Lightmap is this surface's baked lightmap placement (spec §3's
	// surface "lightmap info"), filled in by the builder's lightmap bake
	// stage after package lightmap has projected, packed, and rasterized
	// every surface. Zero value until then.
	Lightmap LightmapPlacement
}

// LightmapPlacement is the packed per-surface lightmap metadata spec §3
// and §4.6 describe: the dominant-axis/scale encoding word, the two
// tex-gen distances (already folded with the atlas offset), and where in
// which atlas page this surface's rasterized lumels live.
type LightmapPlacement struct {
	FinalWord                uint32
	TexGenDistS, TexGenDistT float32
	AtlasID                  int
	OffsetX, OffsetY         int
	Width, Height            int
}

// SurfacePool accumulates the Surfaces array for one interior build.
// Unlike the value pools in package pool, surfaces are not deduplicated:
// every face of every brush contributes exactly one surface, in brush
// order, matching spec §4.3's face-id-indexed surface references.
type SurfacePool struct {
	surfaces []Surface
}

func NewSurfacePool() *SurfacePool { return &SurfacePool{} }

func (sp *SurfacePool) Surfaces() []Surface { return sp.surfaces }
func (sp *SurfacePool) Len() int            { return len(sp.surfaces) }

func (sp *SurfacePool) add(s Surface) int {
	idx := len(sp.surfaces)
	sp.surfaces = append(sp.surfaces, s)
	return idx
}

// Hull is one brush's exported convex-hull record (spec §4.2). Fields
// that mb_only skips are left nil rather than zero-length, so callers
// can tell "skipped" from "genuinely empty".
type Hull struct {
	Min, Max mgl32.Vec3

	// PointIndices are this hull's points as global Points-pool indices,
	// in first-appearance-across-faces order. Nil when MBOnly.
	PointIndices []int
	// PlaneIndices are the hull's bounding planes, each carrying
	// config.FlipBit when the brush face used the negated orientation.
	PlaneIndices []int
	// SurfaceIndices index into the interior-wide SurfacePool. Always
	// populated, even under MBOnly: the renderer needs them regardless
	// of whether runtime collision data was produced.
	SurfaceIndices []int
	// PolyPointIndices/PolyPlaneIndices are the flattened per-poly point
	// references and, parallel to them, the hull-local face index of the
	// poly each point belongs to, mirrored for tools that read the hull
	// without walking the emit string. Nil when MBOnly.
	PolyPointIndices []int
	PolyPlaneIndices []int

	// EmitStringIndices is a per-point parallel array: EmitStringIndices[i]
	// is the byte offset into the pooled emit-string blob describing
	// PointIndices[i]'s own hull adjacency — the polys touching that
	// point (plus any poly sharing one of those polys' planes), and the
	// points/edges those polys contain. Each point's blob is built and
	// interned independently, so two points with identical local
	// adjacency share one pooled blob but points with different
	// adjacency never collide. Nil when MBOnly.
	EmitStringIndices []int
}

// Export builds brush's Hull record, interning its points/planes/texgens/
// materials into pools and appending one Surface per face into surfaces.
func Export(brush geomtypes.Brush, pools *pool.Pools, surfaces *SurfacePool, cfg config.BuildConfig) Hull {
	min, max := brush.AABB()
	h := Hull{Min: min, Max: max}

	// emitLocal accumulates brush-local vertex indices in first-appearance
	// order across faces; this is both the hull's PointIndices source (once
	// each is interned into the global pool) and the emit string's point
	// list (builder.rs's emit_points).
	var emitLocal []int
	seenLocal := make(map[int]bool)
	for _, f := range brush.Faces {
		for _, p := range f.Points {
			if !seenLocal[p] {
				seenLocal[p] = true
				emitLocal = append(emitLocal, p)
			}
		}
	}

	if !cfg.MBOnly {
		h.PointIndices = make([]int, len(emitLocal))
		for i, lp := range emitLocal {
			h.PointIndices[i] = pools.Points.Intern(brush.Vertices[lp])
		}
	}

	localPos := make(map[int]int, len(emitLocal))
	for i, lp := range emitLocal {
		localPos[lp] = i
	}

	facePlaneIdx := make([]int, len(brush.Faces))
	planeSeen := make(map[int]bool)
	for faceIdx, f := range brush.Faces {
		globalPoints := make([]int, len(f.Points))
		for i, lp := range f.Points {
			globalPoints[i] = pools.Points.Intern(brush.Vertices[lp])
		}

		planeIdx := pools.Planes.InternFlipIndex(f.Plane)
		facePlaneIdx[faceIdx] = planeIdx
		if bare, _ := pool.Resolve(planeIdx); !planeSeen[bare] {
			planeSeen[bare] = true
			h.PlaneIndices = append(h.PlaneIndices, planeIdx)
		}

		texgenIdx := pools.Texgens.Intern(f.Texgen)
		matIdx := pools.Materials.Intern(f.Material)

		surf := Surface{
			PlaneIndex:       planeIdx,
			TexgenIndex:      texgenIdx,
			MaterialIdx:      matIdx,
			TexDiv:           f.TexDiv,
			WindingCollision: globalPoints,
			WindingFan:       fanReorder(globalPoints),
		}
		surfIdx := surfaces.add(surf)
		h.SurfaceIndices = append(h.SurfaceIndices, surfIdx)

		if !cfg.MBOnly {
			for _, lp := range f.Points {
				h.PolyPointIndices = append(h.PolyPointIndices, localPos[lp])
			}
			for range f.Points {
				h.PolyPlaneIndices = append(h.PolyPlaneIndices, faceIdx)
			}
		}
	}

	if !cfg.MBOnly {
		h.EmitStringIndices = make([]int, len(emitLocal))
		for i, lp := range emitLocal {
			blob := buildEmitString(brush, facePlaneIdx, lp, localPos)
			h.EmitStringIndices[i] = pools.Emit.Intern(blob)
		}
	}

	return h
}

// fanReorder re-orders a CCW winding into the triangle-fan-friendly order
// classic Torque renderers expect: point 0, then alternating from the end
// and the front of the remaining run. Grounded on builder.rs's surface
// winding fix-up (even/odd remap around a fan_mask), generalized from its
// fixed 3/4-point cases to arbitrary winding length.
func fanReorder(winding []int) []int {
	n := len(winding)
	if n <= 3 {
		out := make([]int, n)
		copy(out, winding)
		return out
	}
	out := make([]int, n)
	lo, hi := 1, n-1
	out[0] = winding[0]
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			out[i] = winding[lo]
			lo++
		} else {
			out[i] = winding[hi]
			hi--
		}
	}
	return out
}

// buildEmitString encodes point lp's own hull adjacency as spec §4.2
// describes, following builder.rs's export_convex_hull loop exactly:
// first the set of polys touching lp, widened to include any other poly
// sharing one of those polys' supporting planes (a coplanar sibling);
// then the union of points and edges those polys contain; then the poly
// list itself, each point remapped to its position within that point
// union. Every count and index is asserted to fit a byte, matching the
// original's 0x100 assertions — DIF's runtime collision format is
// genuinely byte-indexed. localPos remaps a brush-local vertex index to
// its position in this hull's own PointIndices array, which is what the
// emitted point/edge bytes must index into.
func buildEmitString(brush geomtypes.Brush, facePlaneIdx []int, lp int, localPos map[int]int) []byte {
	var touching []int
	for faceIdx, f := range brush.Faces {
		if containsInt(f.Points, lp) {
			touching = append(touching, faceIdx)
		}
	}
	if len(touching) == 0 {
		panic("hull: collision point touches no face")
	}

	included := make(map[int]bool, len(touching))
	polys := append([]int(nil), touching...)
	for _, fi := range touching {
		included[fi] = true
	}
	for _, fi := range touching {
		for j := range brush.Faces {
			if included[j] {
				continue
			}
			if facePlaneIdx[j] == facePlaneIdx[fi] {
				included[j] = true
				polys = append(polys, j)
			}
		}
	}

	var emitPoints []int
	seenPoint := make(map[int]bool)
	for _, pj := range polys {
		for _, p := range brush.Faces[pj].Points {
			if !seenPoint[p] {
				seenPoint[p] = true
				emitPoints = append(emitPoints, p)
			}
		}
	}

	type edge struct{ a, b int }
	var emitEdges []edge
	seenEdge := make(map[edge]bool)
	for _, pj := range polys {
		pts := brush.Faces[pj].Points
		n := len(pts)
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			if a > b {
				a, b = b, a
			}
			e := edge{a, b}
			if !seenEdge[e] {
				seenEdge[e] = true
				emitEdges = append(emitEdges, e)
			}
		}
	}

	byteLocalPos := func(raw int) byte {
		pos := localPos[raw]
		if pos >= 0x100 {
			panic("hull: brush has more than 255 distinct collision points")
		}
		return byte(pos)
	}

	if len(emitPoints) >= 0x100 {
		panic("hull: brush has more than 255 distinct collision points")
	}
	var buf []byte
	buf = append(buf, byte(len(emitPoints)))
	for _, p := range emitPoints {
		buf = append(buf, byteLocalPos(p))
	}

	if len(emitEdges) >= 0x100 {
		panic("hull: brush has more than 255 distinct collision edges")
	}
	buf = append(buf, byte(len(emitEdges)))
	for _, e := range emitEdges {
		buf = append(buf, byteLocalPos(e.a), byteLocalPos(e.b))
	}

	if len(polys) >= 0x100 {
		panic("hull: brush has more than 255 faces")
	}
	buf = append(buf, byte(len(polys)))
	for _, pj := range polys {
		pts := brush.Faces[pj].Points
		if len(pts) >= 0x100 {
			panic("hull: face has more than 255 points")
		}
		buf = append(buf, byte(len(pts)), byte(pj))
		for _, p := range pts {
			idx := indexOfInt(emitPoints, p)
			if idx >= 0x100 {
				panic("hull: brush has more than 255 distinct collision points")
			}
			buf = append(buf, byte(idx))
		}
	}
	return buf
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func indexOfInt(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}
