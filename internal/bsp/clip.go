package bsp

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/geomtypes"
)

// clipBrush splits b against planeID, returning the front and back
// fragments. Each fragment's faces are clipped independently and any
// face clipped down to two or fewer points is dropped; the two
// fragments then each get a new cap face along the splitting plane
// (unless they already have a face on it), its winding assembled from the intersection points generated while
// clipping, sorted around the plane's own 2D basis.
//
// Grounded on bsp.rs's CSXBrush::split/clip_plane: per-edge signed
// distance tests against an epsilon tolerance, a straddle case that
// inserts a parametric intersection point, a 10*epsilon sanity bound on
// every retained vertex, and a used_plane flag that propagates once a
// face's own plane (or the splitter) has been consumed as a BSP
// decision.
func clipBrush(b brush, planeID int, planes []geomtypes.Plane, epsilon float32) (front, back brush) {
	splitPlane := planes[planeID]
	front = clipHalf(b, splitPlane, epsilon, true)
	back = clipHalf(b, splitPlane, epsilon, false)
	closeCap(&front, planeID, splitPlane, epsilon)
	closeCap(&back, planeID, splitPlane, epsilon)
	for i := range front.faces {
		if front.faces[i].planeID == planeID {
			front.faces[i].usedPlane = true
		}
	}
	for i := range back.faces {
		if back.faces[i].planeID == planeID {
			back.faces[i].usedPlane = true
		}
	}
	return front, back
}

// clipHalf keeps the half of b on the side plane.Eval <= epsilon, after
// optionally negating the plane first (keepFront flips it, so the kept
// side ends up being the splitter's positive half-space).
func clipHalf(b brush, plane geomtypes.Plane, epsilon float32, keepFront bool) brush {
	p := plane
	if keepFront {
		p = plane.Negated()
	}
	testEpsilon := 10 * epsilon

	out := brush{owner: b.owner, verts: append([]mgl32.Vec3(nil), b.verts...)}
	for _, f := range b.faces {
		n := len(f.points)
		if n == 0 {
			continue
		}
		var newPoints []int
		for i := 0; i < n; i++ {
			cur := f.points[i]
			next := f.points[(i+1)%n]
			d1 := p.Eval(out.verts[cur])
			d2 := p.Eval(out.verts[next])
			if d1 <= epsilon {
				newPoints = append(newPoints, cur)
			}
			if (d1 > epsilon && d2 < -epsilon) || (d1 < -epsilon && d2 > epsilon) {
				t := d1 / (d1 - d2)
				ip := lerp(out.verts[cur], out.verts[next], t)
				idx := len(out.verts)
				out.verts = append(out.verts, ip)
				newPoints = append(newPoints, idx)
			}
		}
		for _, pi := range newPoints {
			if p.Eval(out.verts[pi]) > testEpsilon {
				panic("bsp: clip produced vertex outside tolerance")
			}
		}
		if len(newPoints) <= 2 {
			continue
		}
		nf := f
		nf.points = newPoints
		out.faces = append(out.faces, nf)
	}
	return out
}

// closeCap adds the polygon formed by the splitting plane itself to b,
// if clipping produced more than two boundary vertices to close. New
// vertices introduced by clipHalf's straddle case all lie on the plane;
// closeCap finds them by re-testing every vertex against the plane
// (any brush vertex already on the plane within epsilon participates
// too, matching a brush face that was itself coplanar with the
// splitter), then orders them by angle around the plane's own 2D basis
// to produce a simple, non-self-intersecting winding. A brush that already
// has a face on planeID is closed there and gets no cap, so a fragment
// left holding only that face keeps a single face and is dropped by
// splitBrushList.
func closeCap(b *brush, planeID int, plane geomtypes.Plane, epsilon float32) {
	for _, f := range b.faces {
		if f.planeID == planeID {
			return
		}
	}
	seen := make(map[int]bool)
	for _, f := range b.faces {
		for _, pi := range f.points {
			if absf32(plane.Eval(b.verts[pi])) <= epsilon {
				seen[pi] = true
			}
		}
	}
	if len(seen) < 3 {
		return
	}
	pts := make([]int, 0, len(seen))
	for pi := range seen {
		pts = append(pts, pi)
	}

	u, v := planeBasis(plane.Normal)
	var centroid mgl32.Vec3
	for _, pi := range pts {
		centroid = centroid.Add(b.verts[pi])
	}
	centroid = centroid.Mul(1.0 / float32(len(pts)))

	angle := func(pi int) float32 {
		d := b.verts[pi].Sub(centroid)
		return atan2f(d.Dot(v), d.Dot(u))
	}
	for i := 1; i < len(pts); i++ {
		j := i
		for j > 0 && angle(pts[j-1]) > angle(pts[j]) {
			pts[j-1], pts[j] = pts[j], pts[j-1]
			j--
		}
	}

	b.faces = append(b.faces, face{planeID: planeID, points: pts, sourceID: -1})
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// planeBasis returns an arbitrary orthonormal (u, v) pair spanning the
// plane perpendicular to n.
func planeBasis(n mgl32.Vec3) (u, v mgl32.Vec3) {
	ref := mgl32.Vec3{0, 1, 0}
	if absf32(n.Dot(ref)) > 0.99 {
		ref = mgl32.Vec3{1, 0, 0}
	}
	u = n.Cross(ref).Normalize()
	v = n.Cross(u).Normalize()
	return
}
