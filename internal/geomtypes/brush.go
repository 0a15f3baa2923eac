// Package geomtypes holds the brush/face/plane/texgen value types shared
// by every later compiler stage, and the brush preprocessing step of
// spec §6 (transform application, texgen scale/rotate, plane
// normalization).
package geomtypes

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a supporting plane in Hessian normal form: dot(normal, p) + distance == 0.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Eval returns the signed distance of p from the plane.
func (p Plane) Eval(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

// Negated returns the plane with normal and distance both flipped — the
// same geometric plane, opposite facing, per spec §3's inverse-plane rule.
func (p Plane) Negated() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Distance: -p.Distance}
}

// Texgen is the pair of planes spec §3 uses to map a world position to (u, v).
type Texgen struct {
	PlaneX Plane
	PlaneY Plane
}

// UV projects p through the texgen planes to get (u, v).
func (t Texgen) UV(p mgl32.Vec3) (float32, float32) {
	return t.PlaneX.Eval(p), t.PlaneY.Eval(p)
}

// Face is one convex, coplanar, CCW-wound polygon of a brush.
type Face struct {
	ID       int
	Plane    Plane
	Material string
	Texgen   Texgen
	TexDiv   [2]int
	// Points is the CCW winding: indices into the owning Brush's Vertices.
	Points []int
	// UsedPlane marks this face's supporting plane as a BSP splitter
	// already chosen on the path to whatever leaf currently owns the
	// brush (spec §3/§4.3).
	UsedPlane bool
}

// Brush is an indexed, transformed convex polyhedron (spec §3).
type Brush struct {
	ID        int
	Owner     int
	Type      int
	Transform mgl32.Mat4
	Vertices  []mgl32.Vec3
	Faces     []Face
}

// Clone deep-copies a brush, the way the BSP builder clones its input set
// so the tree owns its own brush sub-lists exclusively (spec §3 lifecycle).
func (b Brush) Clone() Brush {
	verts := make([]mgl32.Vec3, len(b.Vertices))
	copy(verts, b.Vertices)
	faces := make([]Face, len(b.Faces))
	for i, f := range b.Faces {
		pts := make([]int, len(f.Points))
		copy(pts, f.Points)
		f.Points = pts
		faces[i] = f
	}
	return Brush{ID: b.ID, Owner: b.Owner, Type: b.Type, Transform: b.Transform, Vertices: verts, Faces: faces}
}

// Excluded implements the brush filter of spec §6: brushes of type 999 or
// 4 are dropped from compilation unless they belong to worldspawn (owner 0).
func (b Brush) Excluded() bool {
	if b.Type == 999 || b.Type == 4 {
		return b.Owner != 0
	}
	return false
}

// AABB returns the brush's vertex bounding box.
func (b Brush) AABB() (min, max mgl32.Vec3) {
	min = mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	max = mgl32.Vec3{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for _, v := range b.Vertices {
		min = minVec(min, v)
		max = maxVec(max, v)
	}
	return
}

func minVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{fMin(a.X(), b.X()), fMin(a.Y(), b.Y()), fMin(a.Z(), b.Z())}
}

func maxVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{fMax(a.X(), b.X()), fMax(a.Y(), b.Y()), fMax(a.Z(), b.Z())}
}

func fMin(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func fMax(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
