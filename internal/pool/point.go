// Package pool implements the geometry canonicalizer of spec §4.1: the
// intern_point/intern_plane/intern_texgen/intern_material/intern_emit_string
// pools that fold a redundant brush soup into deduplicated, index-stable
// arrays. Every intern_* call is idempotent under the equality relation of
// spec §3 (hashing is deliberately coarser than equality — buckets on
// quantized magnitudes, then equality is always consulted to disambiguate).
//
// Grounded on the teacher's pooled-asset pattern (mod_assets.go's
// map[AssetId]MeshAsset/MaterialAsset with a stable insertion order),
// generalized here from identity keys to approximate-equality keys.
package pool

import "github.com/go-gl/mathgl/mgl32"

// bucketScale is the quantization granularity used for hash-bucket keys.
// It is intentionally much coarser than any dedup epsilon so the bucket
// collapses many near-equal values together; equality still does the real
// disambiguation (spec §9 "approximate equality hashing").
const bucketScale = 64.0

func quantize(v float32) int32 {
	return int32(v * bucketScale)
}

// PointPool interns points under component-wise |delta| < epsilon equality.
type PointPool struct {
	Epsilon float32
	points  []mgl32.Vec3
	buckets map[[3]int32][]int
}

func NewPointPool(epsilon float32) *PointPool {
	return &PointPool{Epsilon: epsilon, buckets: make(map[[3]int32][]int)}
}

// Points returns the pooled points in insertion order.
func (p *PointPool) Points() []mgl32.Vec3 { return p.points }

func (p *PointPool) Len() int { return len(p.points) }

// Intern returns the index of v, reusing an existing point within Epsilon
// on every axis if one exists.
func (p *PointPool) Intern(v mgl32.Vec3) int {
	key := [3]int32{quantize(v.X()), quantize(v.Y()), quantize(v.Z())}
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				nk := [3]int32{key[0] + dx, key[1] + dy, key[2] + dz}
				for _, idx := range p.buckets[nk] {
					if pointsEqual(p.points[idx], v, p.Epsilon) {
						return idx
					}
				}
			}
		}
	}
	idx := len(p.points)
	p.points = append(p.points, v)
	p.buckets[key] = append(p.buckets[key], idx)
	return idx
}

func pointsEqual(a, b mgl32.Vec3, epsilon float32) bool {
	return absf(a.X()-b.X()) < epsilon && absf(a.Y()-b.Y()) < epsilon && absf(a.Z()-b.Z()) < epsilon
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
