// Package dif encodes one compiled interior into the binary DIF-like
// format spec §5 describes: a little-endian stream of fixed-size arrays
// mirroring the canonicalizer pools, the linked BSP tree, the coord-bin
// index, and the lightmap atlas. Grounded on the teacher's VOX chunk
// codec (vox.go's LoadVoxFile) for the "binary.LittleEndian, explicit
// length-prefixed arrays" writing style, adapted from a chunked RIFF-like
// reader into a flat sequential writer since DIF carries no chunk
// headers.
package dif

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/bsp"
	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/coordbin"
	"github.com/diforge/difc/internal/entityconv"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/hull"
	"github.com/diforge/difc/internal/pathway"
)

// File is the top-level document: one or more interiors (a level plus
// its moving-platform sub-objects) and the non-geometry records that
// ride alongside them. Grounded on csx.rs's Dif struct.
type File struct {
	Interiors  []Interior
	SubObjects []Interior
	Entities   []entityconv.GameEntity
	Followers  []pathway.Follower
}

// WriteFile encodes every section of f to w in sequence: interior count
// and bodies, sub-object count and bodies, then the entity and path
// follower tables.
func WriteFile(w io.Writer, f File) error {
	bw := &binWriter{w: w}
	bw.u32(uint32(len(f.Interiors)))
	if bw.err != nil {
		return bw.err
	}
	for _, it := range f.Interiors {
		if err := Write(w, it); err != nil {
			return err
		}
	}

	bw2 := &binWriter{w: w}
	bw2.u32(uint32(len(f.SubObjects)))
	if bw2.err != nil {
		return bw2.err
	}
	for _, it := range f.SubObjects {
		if err := Write(w, it); err != nil {
			return err
		}
	}

	bw3 := &binWriter{w: w}
	bw3.u32(uint32(len(f.Entities)))
	for _, e := range f.Entities {
		bw3.vec3(e.Position)
		bw3.str(e.Datablock)
		bw3.str(e.GameClass)
		bw3.u32(uint32(len(e.Properties)))
		for k, v := range e.Properties {
			bw3.str(k)
			bw3.str(v)
		}
	}
	if bw3.err != nil {
		return bw3.err
	}

	bw4 := &binWriter{w: w}
	bw4.u32(uint32(len(f.Followers)))
	for _, fo := range f.Followers {
		bw4.str(fo.Name)
		bw4.str(fo.Datablock)
		bw4.u32(uint32(len(fo.Waypoints)))
		for _, wp := range fo.Waypoints {
			bw4.vec3(wp.Position)
			bw4.u32(uint32(wp.MSToNext))
		}
		bw4.u32(uint32(len(fo.Trigger.Points)))
		for _, p := range fo.Trigger.Points {
			bw4.vec3(p)
		}
	}
	return bw4.err
}

// FatalError marks a precondition violation the writer refuses to
// silently coerce around — an interior that has grown past a hard
// format limit should fail the build, not produce a corrupt file.
type FatalError string

func (e FatalError) Error() string { return string(e) }

// Interior is everything one DIF interior chunk needs, already resolved
// to the pooled/linked forms the earlier compiler stages produced.
type Interior struct {
	Version   int
	Engine    config.EngineVersion
	Points    []mgl32.Vec3
	Normals   []mgl32.Vec3
	Planes    []geomtypes.Plane
	Texgens   []geomtypes.Texgen
	Materials []string
	EmitBytes []byte

	Surfaces []hull.Surface
	Hulls    []hull.Hull

	Nodes             []bsp.LinkedNode
	SolidLeafSurfaces [][]int
	Root              bsp.ChildRef

	// CoordBins is the built coord-bin spatial index (always exactly
	// config.CoordBinCount bins).
	CoordBins coordbin.Index
}

// Write encodes it to w, failing with FatalError if the face count
// exceeds the format's hard per-interior limit (spec §6 "Interior
// splitting" exists precisely so callers never hit this).
func Write(w io.Writer, it Interior) error {
	if len(it.Surfaces) > config.MaxFacesPerInterior {
		return FatalError(fmt.Sprintf("dif: interior has %d faces, exceeds the %d-face limit", len(it.Surfaces), config.MaxFacesPerInterior))
	}

	bw := &binWriter{w: w}
	bw.u32(uint32(it.Version))
	bw.u32(uint32(it.Engine))

	bw.u32(uint32(len(it.Points)))
	for _, p := range it.Points {
		bw.vec3(p)
	}
	bw.u32(uint32(len(it.Normals)))
	for _, n := range it.Normals {
		bw.vec3(n)
	}
	bw.u32(uint32(len(it.Planes)))
	for _, p := range it.Planes {
		bw.vec3(p.Normal)
		bw.f32(p.Distance)
	}
	bw.u32(uint32(len(it.Texgens)))
	for _, t := range it.Texgens {
		bw.vec3(t.PlaneX.Normal)
		bw.f32(t.PlaneX.Distance)
		bw.vec3(t.PlaneY.Normal)
		bw.f32(t.PlaneY.Distance)
	}
	bw.u32(uint32(len(it.Materials)))
	for _, m := range it.Materials {
		bw.str(m)
	}
	bw.u32(uint32(len(it.EmitBytes)))
	bw.bytes(it.EmitBytes)

	bw.u32(uint32(len(it.Surfaces)))
	for _, s := range it.Surfaces {
		bw.u32(uint32(s.PlaneIndex))
		bw.u32(uint32(s.TexgenIndex))
		bw.u32(uint32(s.MaterialIdx))
		bw.u32(uint32(len(s.WindingFan)))
		for _, wi := range s.WindingFan {
			bw.u32(uint32(wi))
		}
		bw.u32(s.Lightmap.FinalWord)
		bw.f32(s.Lightmap.TexGenDistS)
		bw.f32(s.Lightmap.TexGenDistT)
		bw.u32(uint32(s.Lightmap.AtlasID))
		bw.u32(uint32(s.Lightmap.OffsetX))
		bw.u32(uint32(s.Lightmap.OffsetY))
		bw.u32(uint32(s.Lightmap.Width))
		bw.u32(uint32(s.Lightmap.Height))
	}

	bw.u32(uint32(len(it.Hulls)))
	for _, h := range it.Hulls {
		bw.vec3(h.Min)
		bw.vec3(h.Max)
		bw.u32(uint32(len(h.SurfaceIndices)))
		for _, si := range h.SurfaceIndices {
			bw.u32(uint32(si))
		}
		bw.u32(uint32(len(h.PointIndices)))
		for _, pi := range h.PointIndices {
			bw.u32(uint32(pi))
		}
		bw.u32(uint32(len(h.PlaneIndices)))
		for _, pi := range h.PlaneIndices {
			bw.u32(uint32(pi))
		}
	}

	bw.u32(uint32(len(it.Nodes)))
	for _, n := range it.Nodes {
		bw.u32(uint32(n.PlaneIndex))
		bw.u32(n.Front.Pack())
		bw.u32(n.Back.Pack())
	}
	bw.u32(it.Root.Pack())

	bw.u32(uint32(len(it.SolidLeafSurfaces)))
	for _, sl := range it.SolidLeafSurfaces {
		bw.u32(uint32(len(sl)))
		for _, si := range sl {
			bw.u32(uint32(si))
		}
	}

	for _, b := range it.CoordBins.Bins {
		bw.u32(uint32(b.Start))
		bw.u32(uint32(b.Count))
	}
	bw.u32(uint32(len(it.CoordBins.Indices)))
	for _, idx := range it.CoordBins.Indices {
		bw.u32(uint32(idx))
	}

	return bw.err
}

// WriteLightmapPages PNG-encodes each atlas page, in order, as the
// interior's lightmap chunk.
func WriteLightmapPages(w io.Writer, pages []*image.NRGBA) error {
	bw := &binWriter{w: w}
	bw.u32(uint32(len(pages)))
	if bw.err != nil {
		return bw.err
	}
	for _, p := range pages {
		var buf []byte
		pw := &countingBuffer{}
		if err := png.Encode(pw, p); err != nil {
			return err
		}
		buf = pw.buf
		bw.u32(uint32(len(buf)))
		bw.bytes(buf)
	}
	return bw.err
}

type countingBuffer struct{ buf []byte }

func (c *countingBuffer) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	return len(p), nil
}

// binWriter is a tiny little-endian writer that latches the first error
// it sees so call sites don't need to check every field write.
type binWriter struct {
	w   io.Writer
	err error
}

func (b *binWriter) u32(v uint32) {
	if b.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, b.err = b.w.Write(buf[:])
}

func (b *binWriter) f32(v float32) {
	b.u32(math.Float32bits(v))
}

func (b *binWriter) vec3(v mgl32.Vec3) {
	b.f32(v.X())
	b.f32(v.Y())
	b.f32(v.Z())
}

func (b *binWriter) bytes(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) str(s string) {
	b.u32(uint32(len(s)))
	b.bytes([]byte(s))
}
