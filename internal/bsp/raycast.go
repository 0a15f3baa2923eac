package bsp

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/geomtypes"
)

// CastRay reports whether the segment start->end, while traveling
// through solid leaves, ever enters a leaf containing a face on
// planeID. This is the primitive the coverage auditor uses: firing a
// ray from just outside a candidate face toward its interior and
// checking whether the leaf it lands in still considers that face part
// of its boundary confirms the face is reachable rather than sealed
// inside another brush.
//
// Grounded on bsp.rs's CSXBSPNode::ray_cast, including its
// total_cmp-based three-way classification of each endpoint's side and
// the straddle cases, which recurse into the near half first and only
// continue into the far half (now re-rooted at the splitting plane
// itself, so its own faces are eligible matches on that continuation)
// if the near half didn't already report a hit.
func (n *Node) CastRay(start, end mgl32.Vec3, planeID int, planes []geomtypes.Plane) bool {
	if n.PlaneIndex == -1 {
		if !n.Solid {
			return false
		}
		for _, b := range n.Brushes {
			for _, f := range b.faces {
				if f.planeID == planeID {
					return true
				}
			}
		}
		return false
	}

	plane := planes[n.PlaneIndex]
	sSide := sign(plane.Eval(start))
	eSide := sign(plane.Eval(end))

	switch {
	case sSide >= 0 && eSide >= 0 && (sSide > 0 || eSide > 0):
		if n.Front != nil {
			return n.Front.CastRay(start, end, planeID, planes)
		}
		return false
	case sSide > 0 && eSide < 0:
		ip := intersect(plane, start, end)
		if n.Front != nil && n.Front.CastRay(start, ip, planeID, planes) {
			return true
		}
		if n.Back != nil {
			return n.Back.CastRay(ip, end, n.PlaneIndex, planes)
		}
		return false
	case sSide < 0 && eSide > 0:
		ip := intersect(plane, start, end)
		if n.Back != nil && n.Back.CastRay(start, ip, planeID, planes) {
			return true
		}
		if n.Front != nil {
			return n.Front.CastRay(ip, end, n.PlaneIndex, planes)
		}
		return false
	case sSide <= 0 && eSide <= 0:
		if n.Back != nil {
			return n.Back.CastRay(start, end, planeID, planes)
		}
		return false
	default:
		return false
	}
}

func sign(v float32) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func intersect(plane geomtypes.Plane, start, end mgl32.Vec3) mgl32.Vec3 {
	dir := end.Sub(start)
	t := (-plane.Distance - start.Dot(plane.Normal)) / dir.Dot(plane.Normal)
	return start.Add(dir.Mul(t))
}
