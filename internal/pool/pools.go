package pool

import "github.com/diforge/difc/internal/config"

// Pools is the geometry canonicalizer: the full set of deduplicated pools
// one build accumulates. Pools grow monotonically inside a build and are
// reset per output file (spec §3 lifecycle) by constructing a fresh Pools.
type Pools struct {
	Points    *PointPool
	Planes    *PlanePool
	Texgens   *TexgenPool
	Materials *MaterialPool
	Emit      *EmitStringPool
}

// New builds a fresh, empty Pools using cfg's epsilons.
func New(cfg config.BuildConfig) *Pools {
	return &Pools{
		Points:    NewPointPool(cfg.PointEpsilon),
		Planes:    NewPlanePool(cfg.PlaneEpsilon, cfg.PointEpsilon),
		Texgens:   NewTexgenPool(cfg.TexgenEpsilon),
		Materials: NewMaterialPool(),
		Emit:      NewEmitStringPool(),
	}
}
