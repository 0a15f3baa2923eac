// Package audit implements the raycast coverage auditor of spec §4.7:
// for every exported surface, fire a short ray from just outside its
// plane back toward the brush interior and confirm the BSP still
// considers that face reachable, then report the aggregate hit
// percentage plus the tree's balance factor. Grounded on bsp.rs's
// CSXBSPNode::ray_cast (reused directly via package bsp) and on the
// teacher's scene validation pass for the "summarize findings into a
// report struct" shape.
package audit

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/bsp"
	"github.com/diforge/difc/internal/geomtypes"
)

// Probe is one surface to test: its supporting plane (in the BSP
// builder's local plane-index space) and a representative interior
// point to aim the ray at.
type Probe struct {
	PlaneID  int
	Interior mgl32.Vec3
}

// Report summarizes the audit across every probed surface.
type Report struct {
	Total         int
	Hit           int
	BalanceFactor int
}

// HitPercent returns Hit/Total as a percentage, or 100 if there were no
// probes to run.
func (r Report) HitPercent() float64 {
	if r.Total == 0 {
		return 100
	}
	return 100 * float64(r.Hit) / float64(r.Total)
}

// rayLength is how far along the plane's outward normal from the probe's
// interior point the ray starts; it must exceed the probe's depth below
// the surface so the ray crosses the surface's plane.
const rayLength = 0.25

// Run casts one ray per probe, starting rayLength along the plane's
// normal from the probe's interior point and ending at that point, and counts
// how many land in a leaf that still reports the probed plane.
func Run(root *bsp.Node, planes []geomtypes.Plane, probes []Probe) Report {
	rep := Report{Total: len(probes), BalanceFactor: root.BalanceFactor()}
	for _, p := range probes {
		plane := planes[p.PlaneID]
		start := p.Interior.Add(plane.Normal.Mul(rayLength))
		if root.CastRay(start, p.Interior, p.PlaneID, planes) {
			rep.Hit++
		}
	}
	return rep
}
