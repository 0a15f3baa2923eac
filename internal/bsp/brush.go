// Package bsp builds and links the parallel BSP splitting tree of spec
// §4.3: recursive brush-set partitioning with Fast/Exhaustive splitter
// selection, a weighted scoring formula, and a depth-first linker that
// flattens the tree into the runtime node array. Grounded on the
// original bsp.rs/builder.rs splitter and on the teacher's BVH builder
// (voxelrt/rt/bvh/builder.go) for the "reserve a slot, recurse, patch
// children back in" linking idiom this package reuses for BSP nodes.
package bsp

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/geomtypes"
)

// face is a BSP-local face: only what splitting needs. planeID indexes
// the flat, per-face-occurrence plane list built in Build — this is
// deliberately NOT the same list as the canonicalizer's deduplicated
// PlanePool, matching the original builder's separate local plane_list.
type face struct {
	planeID   int
	points    []int // indices into the owning brush's vertices
	sourceID  int   // geomtypes.Face.ID, -1 for a synthesized cap face
	usedPlane bool
}

// brush is a BSP-local convex polyhedron: vertices plus faces referencing
// them by index, mutated in place as the tree clips it against splitters.
type brush struct {
	owner  int // geomtypes.Brush.ID, to look the original brush back up at export time
	verts  []mgl32.Vec3
	faces  []face
}

func (b brush) clone() brush {
	verts := make([]mgl32.Vec3, len(b.verts))
	copy(verts, b.verts)
	faces := make([]face, len(b.faces))
	for i, f := range b.faces {
		pts := make([]int, len(f.points))
		copy(pts, f.points)
		f.points = pts
		faces[i] = f
	}
	return brush{owner: b.owner, verts: verts, faces: faces}
}

func fromGeomtypes(b geomtypes.Brush, planes *[]geomtypes.Plane) brush {
	nb := brush{owner: b.ID, verts: append([]mgl32.Vec3(nil), b.Vertices...)}
	for _, f := range b.Faces {
		planeID := len(*planes)
		*planes = append(*planes, f.Plane)
		nb.faces = append(nb.faces, face{
			planeID:  planeID,
			points:   append([]int(nil), f.Points...),
			sourceID: f.ID,
		})
	}
	return nb
}

// splitRating is the five-term accumulator calcPlaneRating's inputs
// reduce into: front/back/splits/coplanar/tinyWindings counts summed
// across every brush in a node.
type splitRating struct {
	front, back, splits, coplanar, tinyWindings int
}

func (a splitRating) add(b splitRating) splitRating {
	return splitRating{
		front:        a.front + b.front,
		back:         a.back + b.back,
		splits:       a.splits + b.splits,
		coplanar:     a.coplanar + b.coplanar,
		tinyWindings: a.tinyWindings + b.tinyWindings,
	}
}

// calculateSplitRating classifies b's faces against candidate plane
// planeID. considered is shared across every brush being rated for this
// candidate, so a face exactly coplanar with the candidate is only ever
// counted once: the first brush to see it records coplanar=1 and every
// other brush's matching face is a free pass-through rather than a
// second vote. A face on the inverse plane is not gated by considered:
// every brush holding one records coplanar=1.
//
// Grounded on bsp.rs's CSXBrush::calculate_split_rating, including its
// two early-exit branches (both of which count as coplanar=1) and its
// max_front/min_back accumulators starting at exactly 0.0 rather than
// +/-infinity, so a brush that never crosses the plane keeps whichever
// side it's already on at zero rather than registering a false split.
func calculateSplitRating(b brush, planeID int, planes []geomtypes.Plane, epsilon float32, considered map[int]bool, considerMu lockable) splitRating {
	considerMu.Lock()
	already := considered[planeID]
	considerMu.Unlock()

	if !already {
		for _, f := range b.faces {
			if f.planeID == planeID {
				considerMu.Lock()
				considered[planeID] = true
				considerMu.Unlock()
				return splitRating{front: 0, back: 1, splits: 0, coplanar: 1, tinyWindings: 0}
			}
		}
	}

	target := planes[planeID]
	for _, f := range b.faces {
		fp := planes[f.planeID]
		if fp.Normal.Dot(target.Normal.Mul(-1)) > 0.999 && absf32(fp.Distance-(-target.Distance)) < epsilon {
			considerMu.Lock()
			considered[planeID] = true
			considerMu.Unlock()
			return splitRating{front: 1, back: 0, splits: 0, coplanar: 1, tinyWindings: 0}
		}
	}

	seen := make(map[int]bool)
	var maxFront, minBack float32 = 0, 0
	for _, f := range b.faces {
		for _, pi := range f.points {
			if seen[pi] {
				continue
			}
			seen[pi] = true
			d := target.Eval(b.verts[pi])
			if d > maxFront {
				maxFront = d
			}
			if d < minBack {
				minBack = d
			}
		}
	}

	r := splitRating{}
	if maxFront > epsilon {
		r.front = 1
	}
	if minBack < -epsilon {
		r.back = 1
	}
	if r.front == 1 && r.back == 1 {
		r.splits = 1
	}
	if (maxFront > 0 && maxFront < 1) || (minBack < 0 && minBack > -1) {
		r.tinyWindings = 1
	}
	return r
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// lockable is the minimal mutex surface calculateSplitRating needs; it
// lets tests pass a no-op lock when exercising single-threaded callers.
type lockable interface {
	Lock()
	Unlock()
}
