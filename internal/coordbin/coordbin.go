// Package coordbin builds the interior's coordinate-bin spatial index: a
// fixed 16x16 grid over the interior's XY bounding box used as a
// broad-phase lookup from world position to candidate convex hulls
// (spec §4.5). Grounded on builder.rs's export_coord_bins and on the
// teacher's spatial grid partitioner for the "fixed grid, per-cell
// membership list" shape.
package coordbin

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/config"
)

// Bin is one cell's hull membership: a contiguous run within the
// interior-wide coord-bin index list (spec §4.5's bin_start/bin_count).
type Bin struct {
	Start int
	Count int
}

// HullBounds is the minimal per-hull shape Build needs: its XY-projected
// bounding rectangle.
type HullBounds struct {
	Min, Max mgl32.Vec3
}

// Index is the built coord-bin spatial index: always exactly
// config.CoordBinCount bins, each naming a run of hull indices within
// Indices.
type Index struct {
	Bins    [config.CoordBinCount]Bin
	Indices []int
}

// Build partitions boundsMin/boundsMax's XY extent into a
// CoordBinDim x CoordBinDim grid and, for each bin, lists every hull
// whose XY rectangle overlaps it. A hull with zero or degenerate extent
// still participates: overlap is a closed-interval rectangle test, never
// a strict one, so a hull exactly on a bin boundary is counted in both.
func Build(hulls []HullBounds, boundsMin, boundsMax mgl32.Vec3) Index {
	var idx Index
	width := boundsMax.X() - boundsMin.X()
	depth := boundsMax.Y() - boundsMin.Y()
	if width <= 0 {
		width = 1
	}
	if depth <= 0 {
		depth = 1
	}
	cellW := width / float32(config.CoordBinDim)
	cellD := depth / float32(config.CoordBinDim)

	for by := 0; by < config.CoordBinDim; by++ {
		for bx := 0; bx < config.CoordBinDim; bx++ {
			binIdx := by*config.CoordBinDim + bx
			cellMinX := boundsMin.X() + float32(bx)*cellW
			cellMaxX := boundsMin.X() + float32(bx+1)*cellW
			cellMinY := boundsMin.Y() + float32(by)*cellD
			cellMaxY := boundsMin.Y() + float32(by+1)*cellD

			start := len(idx.Indices)
			for hi, h := range hulls {
				if h.Max.X() < cellMinX || h.Min.X() > cellMaxX {
					continue
				}
				if h.Max.Y() < cellMinY || h.Min.Y() > cellMaxY {
					continue
				}
				idx.Indices = append(idx.Indices, hi)
			}
			idx.Bins[binIdx] = Bin{Start: start, Count: len(idx.Indices) - start}
		}
	}
	return idx
}
