package geomtypes

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// RawFace is the face data as read off the scene tree, before world-space
// preprocessing: a local-space plane, the 11-float texgen record of
// spec §6, and the per-face tex_div divisor pair.
type RawFace struct {
	ID       int
	Plane    Plane
	Material string
	// TexgenX/TexgenY are the raw local-space texgen planes before scale/rotate.
	TexgenX, TexgenY Plane
	Rotation         float32 // degrees
	ScaleU, ScaleV   float32
	TexDiv           [2]int
	Points           []int
}

// RawBrush is the brush data as read off the scene tree.
type RawBrush struct {
	ID        int
	Owner     int
	Type      int
	Transform mgl32.Mat4
	Vertices  []mgl32.Vec3
	Faces     []RawFace
}

// Preprocess applies spec §6's brush preprocessing: vertices transformed by
// brush.Transform; each face's plane transformed by the inverse-transpose
// for the normal and by Transform for a representative origin point, then
// renormalized; texgens scaled by (1/scale)*(brushScale/texDiv), rotated
// about the plane_x × plane_y axis, and transformed into world space.
func Preprocess(raw RawBrush, brushScale int) Brush {
	normalMat := mgl32.Mat4Normal(raw.Transform)

	vertices := make([]mgl32.Vec3, len(raw.Vertices))
	for i, v := range raw.Vertices {
		vertices[i] = raw.Transform.Mul4x1(v.Vec4(1)).Vec3()
	}

	faces := make([]Face, len(raw.Faces))
	for i, rf := range raw.Faces {
		worldPlane := transformPlane(raw.Transform, normalMat, rf.Plane, true)

		texX, texY := rf.TexgenX, rf.TexgenY
		texX = scaleTexgenPlane(texX, rf.ScaleU, brushScale, rf.TexDiv[0])
		texY = scaleTexgenPlane(texY, rf.ScaleV, brushScale, rf.TexDiv[1])
		if rf.Rotation != 0 {
			texX, texY = rotateTexgenPlanes(texX, texY, rf.Rotation)
		}

		faces[i] = Face{
			ID:       rf.ID,
			Plane:    worldPlane,
			Material: rf.Material,
			Texgen: Texgen{
				PlaneX: transformPlane(raw.Transform, normalMat, texX, false),
				PlaneY: transformPlane(raw.Transform, normalMat, texY, false),
			},
			TexDiv: rf.TexDiv,
			Points: append([]int(nil), rf.Points...),
		}
	}

	return Brush{
		ID:        raw.ID,
		Owner:     raw.Owner,
		Type:      raw.Type,
		Transform: raw.Transform,
		Vertices:  vertices,
		Faces:     faces,
	}
}

// transformPlane moves a local-space plane into world space by transforming
// a representative point on the plane through transform and the plane's
// normal through the inverse-transpose normalMat, then recomputing the
// distance from the transformed point and normal. Face planes renormalize
// afterward per spec §6; texgen planes keep their magnitude since it
// carries UV density.
func transformPlane(transform mgl32.Mat4, normalMat mgl32.Mat3, p Plane, normalize bool) Plane {
	nDotN := p.Normal.Dot(p.Normal)
	if nDotN == 0 {
		return p
	}
	origin := p.Normal.Mul(-p.Distance / nDotN)
	newOrigin := transform.Mul4x1(origin.Vec4(1)).Vec3()
	newNormal := normalMat.Mul3x1(p.Normal)
	if normalize {
		l := newNormal.Len()
		if l > 0 {
			newNormal = newNormal.Mul(1 / l)
		}
	}
	return Plane{Normal: newNormal, Distance: -newOrigin.Dot(newNormal)}
}

// scaleTexgenPlane scales a raw texgen plane's normal and distance by
// independent factors per csx.rs's preprocess_csx: the normal carries the
// scale/tex_div-derived UV density, (1/scale)*(brush_scale/tex_div), while
// the distance (the plane's own UV origin offset, already in tex_div
// units) only ever divides by tex_div — it never sees 1/scale or
// brush_scale, so reusing the normal's factor here would scale every
// surface's UV origin by the brush's own scale and brush_scale, shifting
// it for any brush where either isn't 1.
func scaleTexgenPlane(p Plane, scale float32, brushScale, texDiv int) Plane {
	if scale == 0 {
		scale = 1
	}
	if texDiv == 0 {
		texDiv = 1
	}
	normalFactor := (1 / scale) * (float32(brushScale) / float32(texDiv))
	distFactor := 1 / float32(texDiv)
	return Plane{Normal: p.Normal.Mul(normalFactor), Distance: p.Distance * distFactor}
}

// rotateTexgenPlanes rotates both texgen normals by degrees around the axis
// plane_x.normal x plane_y.normal; distances are left as-is since they
// encode the UV origin offset, not direction.
func rotateTexgenPlanes(x, y Plane, degrees float32) (Plane, Plane) {
	axis := x.Normal.Cross(y.Normal)
	l := axis.Len()
	if l == 0 {
		return x, y
	}
	axis = axis.Mul(1 / l)
	rad := float64(degrees) * math.Pi / 180
	rot := mgl32.HomogRotate3D(float32(rad), axis)
	x.Normal = rot.Mul4x1(x.Normal.Vec4(0)).Vec3()
	y.Normal = rot.Mul4x1(y.Normal.Vec4(0)).Vec3()
	return x, y
}
