package bsp

import (
	"math"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/progress"
	"github.com/diforge/difc/internal/workpool"
)

// Node is one node of the BSP splitting tree built in brush space (not
// yet linked into the runtime array form; see Link).
type Node struct {
	Brushes          []brush
	Front, Back      *Node
	PlaneIndex       int // -1 means "no splitter chosen here yet / leaf"
	Solid            bool
}

func nodeFromBrushes(bs []brush, solid bool) *Node {
	return &Node{Brushes: bs, PlaneIndex: -1, Solid: solid}
}

// Height is the node's subtree depth, used for BSP balance reporting
// (spec §4.7).
func (n *Node) Height() int {
	if n == nil {
		return 0
	}
	h := 0
	if fh := n.Front.Height(); fh > h {
		h = fh
	}
	if bh := n.Back.Height(); bh > h {
		h = bh
	}
	return h + 1
}

// BalanceFactor is front subtree height minus back subtree height.
func (n *Node) BalanceFactor() int {
	v := 0
	if n.Front != nil {
		v += n.Front.Height()
	}
	if n.Back != nil {
		v -= n.Back.Height()
	}
	return v
}

// Build partitions brushes into a BSP tree per cfg.SplitMethod, returning
// the root and the flat, undeduplicated, one-entry-per-face-occurrence
// plane list every node's PlaneIndex (and every face's planeID) indexes
// into. Grounded on bsp.rs's build_bsp/CSXBSPNode::split.
func Build(brushes []geomtypes.Brush, cfg config.BuildConfig, pool *workpool.Pool, reporter *progress.Reporter) (*Node, []geomtypes.Plane) {
	var planes []geomtypes.Plane
	bs := make([]brush, len(brushes))
	for i, b := range brushes {
		bs[i] = fromGeomtypes(b, &planes)
	}

	root := nodeFromBrushes(bs, false)
	if cfg.SplitMethod == config.SplitNone {
		root.Front = nodeFromBrushes(nil, false)
		root.Back = nodeFromBrushes(nil, false)
		root.PlaneIndex = 0
		return root, planes
	}

	usedPlanes := make(map[int]bool)
	splitNode(root, planes, cfg, pool, reporter, usedPlanes)
	return root, planes
}

func splitNode(n *Node, planes []geomtypes.Plane, cfg config.BuildConfig, pool *workpool.Pool, reporter *progress.Reporter, usedPlanes map[int]bool) {
	if n.PlaneIndex != -1 {
		return
	}
	unusedPlanes := false
outer:
	for _, b := range n.Brushes {
		for _, f := range b.faces {
			if !f.usedPlane {
				unusedPlanes = true
				break outer
			}
		}
	}
	if !unusedPlanes {
		return
	}

	var chosen int
	var found bool
	switch cfg.SplitMethod {
	case config.SplitFast:
		chosen, found = selectBestSplitterFast(n, planes, cfg.Epsilon, pool)
	default:
		chosen, found = selectBestSplitterExhaustive(n, planes, cfg.Epsilon, pool)
	}
	if !found {
		return
	}

	splitBrushList(n, chosen, planes, cfg.Epsilon)
	n.PlaneIndex = chosen

	if !usedPlanes[chosen] {
		usedPlanes[chosen] = true
		if reporter != nil {
			reporter.Report(len(usedPlanes), len(planes))
		}
	}

	if n.Front != nil {
		markUsed(n.Front, chosen)
		splitNode(n.Front, planes, cfg, pool, reporter, usedPlanes)
	}
	if n.Back != nil {
		markUsed(n.Back, chosen)
		splitNode(n.Back, planes, cfg, pool, reporter, usedPlanes)
	}
}

func markUsed(n *Node, planeID int) {
	for bi := range n.Brushes {
		for fi := range n.Brushes[bi].faces {
			if n.Brushes[bi].faces[fi].planeID == planeID {
				n.Brushes[bi].faces[fi].usedPlane = true
			}
		}
	}
}

func splitBrushList(n *Node, planeID int, planes []geomtypes.Plane, epsilon float32) {
	var frontBrushes, backBrushes []brush
	frontSolid, backSolid := n.Solid, n.Solid

	for _, b := range n.Brushes {
		fb, bb := clipBrush(b, planeID, planes, epsilon)
		if len(fb.faces) > 1 {
			if allPlanesUsed(fb) {
				frontSolid = true
			}
			frontBrushes = append(frontBrushes, fb)
		}
		if len(bb.faces) > 1 {
			if allPlanesUsed(bb) {
				backSolid = true
			}
			backBrushes = append(backBrushes, bb)
		}
	}

	if len(frontBrushes) != 0 {
		n.Front = nodeFromBrushes(frontBrushes, frontSolid)
	}
	if len(backBrushes) != 0 {
		n.Back = nodeFromBrushes(backBrushes, backSolid)
	}
	n.Brushes = nil
}

func allPlanesUsed(b brush) bool {
	for _, f := range b.faces {
		if !f.usedPlane {
			return false
		}
	}
	return true
}

// selectBestSplitterFast samples up to 32 unused face planes (seeded
// deterministically, matching bsp.rs's StdRng::seed_from_u64(42)) and
// rates each in parallel, keeping the highest score. Grounded on
// CSXBSPNode::select_best_splitter.
func selectBestSplitterFast(n *Node, planes []geomtypes.Plane, epsilon float32, pool *workpool.Pool) (int, bool) {
	var candidates []int
	for _, b := range n.Brushes {
		for _, f := range b.faces {
			if !f.usedPlane {
				candidates = append(candidates, f.planeID)
			}
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}

	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > 32 {
		candidates = candidates[:32]
	}

	return rateAndPick(n, candidates, planes, epsilon, pool)
}

// selectBestSplitterExhaustive quantizes every unused face's plane to
// the nearest of 64 hemisphere direction buckets, picks the median-depth
// plane in each non-empty bucket, and rates every one of those
// candidates in parallel. Grounded on
// CSXBSPNode::select_best_splitter_new.
func selectBestSplitterExhaustive(n *Node, planes []geomtypes.Plane, epsilon float32, pool *workpool.Pool) (int, bool) {
	type bucket struct {
		dir   mgl32.Vec3
		faces []int
	}
	buckets := make([]bucket, 0, 64)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			p := -math.Pi + math.Pi*float64(i)/8.0
			t := (math.Pi / 2.0) * float64(j) / 8.0
			dir := mgl32.Vec3{
				float32(math.Cos(t) * math.Sin(p)),
				float32(math.Sin(t) * math.Sin(p)),
				float32(math.Cos(p)),
			}
			buckets = append(buckets, bucket{dir: dir})
		}
	}

	used := make(map[int]bool)
	for _, b := range n.Brushes {
		for _, f := range b.faces {
			if f.usedPlane || used[f.planeID] {
				continue
			}
			used[f.planeID] = true
			maxDot := float32(-1.0)
			maxIdx := -1
			normal := planes[f.planeID].Normal
			for bi, bk := range buckets {
				if d := bk.dir.Dot(normal); d > maxDot {
					maxDot = d
					maxIdx = bi
				}
			}
			if maxIdx >= 0 {
				buckets[maxIdx].faces = append(buckets[maxIdx].faces, f.planeID)
			}
		}
	}

	var candidates []int
	for _, bk := range buckets {
		if len(bk.faces) == 0 {
			continue
		}
		fs := append([]int(nil), bk.faces...)
		sortByDistance(fs, planes)
		candidates = append(candidates, fs[len(fs)/2])
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return rateAndPick(n, candidates, planes, epsilon, pool)
}

func sortByDistance(ids []int, planes []geomtypes.Plane) {
	for i := 1; i < len(ids); i++ {
		j := i
		for j > 0 && planes[ids[j-1]].Distance > planes[ids[j]].Distance {
			ids[j-1], ids[j] = ids[j], ids[j-1]
			j--
		}
	}
}

func rateAndPick(n *Node, candidates []int, planes []geomtypes.Plane, epsilon float32, pool *workpool.Pool) (int, bool) {
	scores := make([]int, len(candidates))
	work := make([]func(), len(candidates))
	for i := range candidates {
		i := i
		work[i] = func() { scores[i] = calcPlaneRating(n, candidates[i], planes, epsilon) }
	}
	if pool != nil {
		pool.ExecuteAll(work)
	} else {
		for _, w := range work {
			w()
		}
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return candidates[best], true
}

// calcPlaneRating is the weighted score select{Fast,Exhaustive}Splitter
// maximize over: heavily rewards coplanar faces, heavily penalizes
// splits and tiny slivers, lightly penalizes front/back imbalance, and
// gives a small bonus to axis-aligned planes. Grounded on
// CSXBSPNode::calc_plane_rating.
func calcPlaneRating(n *Node, planeID int, planes []geomtypes.Plane, epsilon float32) int {
	plane := planes[planeID]
	zero := 0
	if absf32(plane.Normal.X()) < epsilon {
		zero++
	}
	if absf32(plane.Normal.Y()) < epsilon {
		zero++
	}
	if absf32(plane.Normal.Z()) < epsilon {
		zero++
	}
	axial := zero == 2

	considered := make(map[int]bool)
	var mu sync.Mutex
	var total splitRating
	var wg sync.WaitGroup
	var tmu sync.Mutex
	for _, b := range n.Brushes {
		wg.Add(1)
		go func(b brush) {
			defer wg.Done()
			r := calculateSplitRating(b, planeID, planes, epsilon, considered, &mu)
			tmu.Lock()
			total = total.add(r)
			tmu.Unlock()
		}(b)
	}
	wg.Wait()

	score := 5*total.coplanar - 5*total.splits - absInt(total.front-total.back)
	score -= 1000 * total.tinyWindings
	if axial {
		score += 5
	}
	return score
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
