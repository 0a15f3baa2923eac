package pool

import (
	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
)

// PlanePool interns planes under spec §3's equality: n·n' > 0.999 AND
// |d - d'| < Epsilon, with inverse-plane dedup (a plane whose normal is
// the negation of an existing plane is stored as the existing index with
// the flip bit set).
type PlanePool struct {
	Epsilon float32
	planes  []geomtypes.Plane
	buckets map[int32][]int
	// normals interns the direction of each plane separately, shared across
	// planes that agree on direction (spec §4.1).
	normals *PointPool
}

func NewPlanePool(epsilon, normalEpsilon float32) *PlanePool {
	return &PlanePool{
		Epsilon: epsilon,
		buckets: make(map[int32][]int),
		normals: NewPointPool(normalEpsilon),
	}
}

func (p *PlanePool) Planes() []geomtypes.Plane { return p.planes }
func (p *PlanePool) Len() int                  { return len(p.planes) }

// Normals returns the separately-interned plane-normal pool.
func (p *PlanePool) Normals() *PointPool { return p.normals }

// Intern returns (index, flipped). index always refers to planes()[index];
// flipped reports whether the caller's plane is the negation of the stored
// one, i.e. whether referring fields should set config.FlipBit.
func (p *PlanePool) Intern(plane geomtypes.Plane) (int, bool) {
	if idx, ok := p.lookup(plane); ok {
		return idx, false
	}
	neg := plane.Negated()
	if idx, ok := p.lookup(neg); ok {
		return idx, true
	}

	idx := len(p.planes)
	if idx >= config.FlipBit {
		panic("pool: plane count exceeds 15-bit index range")
	}
	p.planes = append(p.planes, plane)
	p.buckets[quantize(plane.Distance)] = append(p.buckets[quantize(plane.Distance)], idx)
	p.normals.Intern(plane.Normal)
	return idx, false
}

// InternFlipIndex is Intern but returns a single index with FlipBit set
// when the caller's plane is the negated match, matching the referring
// field encoding described in spec §3.
func (p *PlanePool) InternFlipIndex(plane geomtypes.Plane) int {
	idx, flipped := p.Intern(plane)
	if flipped {
		return idx | config.FlipBit
	}
	return idx
}

func (p *PlanePool) lookup(plane geomtypes.Plane) (int, bool) {
	key := quantize(plane.Distance)
	for dk := int32(-1); dk <= 1; dk++ {
		for _, idx := range p.buckets[key+dk] {
			if planesEqual(p.planes[idx], plane, p.Epsilon) {
				return idx, true
			}
		}
	}
	return 0, false
}

func planesEqual(a, b geomtypes.Plane, epsilon float32) bool {
	if a.Normal.Dot(b.Normal) <= 0.999 {
		return false
	}
	return absf(a.Distance-b.Distance) < epsilon
}

// Resolve masks off the flip bit and reports the unmasked index plus
// whether the flip bit was set. Every consumer must call this before
// indexing (spec §9 "Flip-bit discipline").
func Resolve(indexWithFlip int) (index int, flipped bool) {
	return indexWithFlip &^ config.FlipBit, indexWithFlip&config.FlipBit != 0
}
