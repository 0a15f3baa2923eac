package pool

import "github.com/diforge/difc/internal/geomtypes"

// TexgenPool interns texgens under component-wise |delta| < epsilon on
// both texgen planes (spec §3).
type TexgenPool struct {
	Epsilon float32
	texgens []geomtypes.Texgen
	buckets map[int32][]int
}

func NewTexgenPool(epsilon float32) *TexgenPool {
	return &TexgenPool{Epsilon: epsilon, buckets: make(map[int32][]int)}
}

func (p *TexgenPool) Texgens() []geomtypes.Texgen { return p.texgens }
func (p *TexgenPool) Len() int                    { return len(p.texgens) }

func (p *TexgenPool) Intern(t geomtypes.Texgen) int {
	key := quantize(t.PlaneX.Distance)
	for dk := int32(-1); dk <= 1; dk++ {
		for _, idx := range p.buckets[key+dk] {
			if texgensEqual(p.texgens[idx], t, p.Epsilon) {
				return idx
			}
		}
	}
	idx := len(p.texgens)
	p.texgens = append(p.texgens, t)
	p.buckets[key] = append(p.buckets[key], idx)
	return idx
}

func texgensEqual(a, b geomtypes.Texgen, epsilon float32) bool {
	return planeComponentsEqual(a.PlaneX, b.PlaneX, epsilon) && planeComponentsEqual(a.PlaneY, b.PlaneY, epsilon)
}

func planeComponentsEqual(a, b geomtypes.Plane, epsilon float32) bool {
	return absf(a.Normal.X()-b.Normal.X()) < epsilon &&
		absf(a.Normal.Y()-b.Normal.Y()) < epsilon &&
		absf(a.Normal.Z()-b.Normal.Z()) < epsilon &&
		absf(a.Distance-b.Distance) < epsilon
}
