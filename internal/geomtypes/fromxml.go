package geomtypes

import (
	"fmt"

	"github.com/diforge/difc/internal/scenetree"
	"github.com/go-gl/mathgl/mgl32"
)

// FromXML converts a scene-tree brush record into a RawBrush ready for
// Preprocess. The transform is column-major, matching mgl32.Mat4's own
// storage order, so the 16 parsed floats drop straight into the matrix.
func FromXML(b scenetree.BrushXML) (RawBrush, error) {
	xf, err := scenetree.ParseFloats(b.Transform)
	if err != nil {
		return RawBrush{}, err
	}
	if len(xf) != 16 {
		return RawBrush{}, fmt.Errorf("geomtypes: brush %d: transform has %d floats, want 16", b.ID, len(xf))
	}
	var m mgl32.Mat4
	copy(m[:], xf)

	vf, err := scenetree.ParseFloats(b.Vertices)
	if err != nil {
		return RawBrush{}, err
	}
	if len(vf)%3 != 0 {
		return RawBrush{}, fmt.Errorf("geomtypes: brush %d: vertices length %d not a multiple of 3", b.ID, len(vf))
	}
	verts := make([]mgl32.Vec3, len(vf)/3)
	for i := range verts {
		verts[i] = mgl32.Vec3{vf[i*3], vf[i*3+1], vf[i*3+2]}
	}

	faces := make([]RawFace, len(b.Faces))
	for i, fx := range b.Faces {
		rf, err := rawFaceFromXML(fx)
		if err != nil {
			return RawBrush{}, fmt.Errorf("geomtypes: brush %d: %w", b.ID, err)
		}
		faces[i] = rf
	}

	return RawBrush{
		ID:        b.ID,
		Owner:     b.Owner,
		Type:      b.Type,
		Transform: m,
		Vertices:  verts,
		Faces:     faces,
	}, nil
}

func rawFaceFromXML(fx scenetree.FaceXML) (RawFace, error) {
	pf, err := scenetree.ParseFloats(fx.Plane)
	if err != nil {
		return RawFace{}, err
	}
	if len(pf) != 4 {
		return RawFace{}, fmt.Errorf("face %d: plane has %d floats, want 4", fx.ID, len(pf))
	}

	tg, err := scenetree.ParseFloats(fx.Texgens)
	if err != nil {
		return RawFace{}, err
	}
	if len(tg) != 11 {
		return RawFace{}, fmt.Errorf("face %d: texgens has %d floats, want 11", fx.ID, len(tg))
	}

	div, err := scenetree.ParseInts(fx.TexDiv)
	if err != nil {
		return RawFace{}, err
	}
	if len(div) != 2 {
		return RawFace{}, fmt.Errorf("face %d: texDiv has %d ints, want 2", fx.ID, len(div))
	}

	idx, err := scenetree.ParseInts(fx.Indices)
	if err != nil {
		return RawFace{}, err
	}

	return RawFace{
		ID:       fx.ID,
		Plane:    Plane{Normal: mgl32.Vec3{pf[0], pf[1], pf[2]}, Distance: pf[3]},
		Material: fx.Material,
		TexgenX:  Plane{Normal: mgl32.Vec3{tg[0], tg[1], tg[2]}, Distance: tg[3]},
		TexgenY:  Plane{Normal: mgl32.Vec3{tg[4], tg[5], tg[6]}, Distance: tg[7]},
		Rotation: tg[8],
		ScaleU:   tg[9],
		ScaleV:   tg[10],
		TexDiv:   [2]int{div[0], div[1]},
		Points:   idx,
	}, nil
}
