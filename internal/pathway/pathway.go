// Package pathway recognizes the two entity classnames spec §4.8 excludes
// from the generic game-entity conversion and turns them into path
// followers: Door_Elevator entities (the moving interior) strung
// together with their path_node waypoints, plus the elevator's
// axis-aligned trigger volume. Grounded on csx.rs's game-entity filter
// (which explicitly drops "Door_Elevator" and "path_node" before the
// generic entity pass) and on the teacher's scene-graph entity walker
// for matching children to a parent by name.
package pathway

import (
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// ExcludedClassnames are the classnames the generic entity converter
// must skip because this package owns them instead.
var ExcludedClassnames = map[string]bool{
	"Door_Elevator": true,
	"path_node":     true,
}

// Waypoint is one stop along a path follower's route.
type Waypoint struct {
	Position mgl32.Vec3
	// MSToNext is the travel time, in milliseconds, from this waypoint
	// to the next one in Waypoints order (0 for the last).
	MSToNext int
	SmoothingType int
}

// Follower is one Door_Elevator plus its ordered path_node chain.
type Follower struct {
	Name      string
	Datablock string
	Waypoints []Waypoint
	Trigger   TriggerVolume
}

// TriggerVolume is the elevator's collision polyhedron: an
// axis-aligned box expressed the way DIF triggers are, as an explicit
// 8-point/6-plane/12-edge winding rather than an implicit AABB, so it
// round-trips through the same polyhedron encoding brush hulls use.
type TriggerVolume struct {
	Points []mgl32.Vec3 // 8, box corners
	Planes []PlaneXYZW  // 6, outward-facing box faces
	Edges  [][2]int     // 12, box edges as point-index pairs
}

// PlaneXYZW is a plane in the same Hessian-normal convention geomtypes.Plane
// uses, kept free of that package's import here since triggers never
// participate in canonicalizer interning.
type PlaneXYZW struct {
	Normal   mgl32.Vec3
	Distance float32
}

// NodeEntity is the minimal shape pathway needs from a parsed scene
// entity: its classname, origin, and flattened property map.
type NodeEntity struct {
	Classname string
	Origin    mgl32.Vec3
	Props     map[string]string
}

// BuildTrigger returns the box trigger volume for an elevator whose
// local bounds (in the elevator's own, untransformed space) are
// min..max.
func BuildTrigger(min, max mgl32.Vec3) TriggerVolume {
	pts := []mgl32.Vec3{
		{min.X(), min.Y(), min.Z()}, {max.X(), min.Y(), min.Z()},
		{max.X(), max.Y(), min.Z()}, {min.X(), max.Y(), min.Z()},
		{min.X(), min.Y(), max.Z()}, {max.X(), min.Y(), max.Z()},
		{max.X(), max.Y(), max.Z()}, {min.X(), max.Y(), max.Z()},
	}
	planes := []PlaneXYZW{
		{Normal: mgl32.Vec3{-1, 0, 0}, Distance: min.X()},
		{Normal: mgl32.Vec3{1, 0, 0}, Distance: -max.X()},
		{Normal: mgl32.Vec3{0, -1, 0}, Distance: min.Y()},
		{Normal: mgl32.Vec3{0, 1, 0}, Distance: -max.Y()},
		{Normal: mgl32.Vec3{0, 0, -1}, Distance: min.Z()},
		{Normal: mgl32.Vec3{0, 0, 1}, Distance: -max.Z()},
	}
	edges := [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	return TriggerVolume{Points: pts, Planes: planes, Edges: edges}
}

// BuildFollower assembles a Follower from an elevator entity and the
// path_node entities that belong to it (matched by the elevator's
// "target" property against each node's "targetname", with remaining
// order resolved by each node's own "target" chain; nodes with no
// resolvable chain fall back to origin-distance-from-elevator order so
// the follower is still deterministic).
//
// Waypoint rotation is pinned to the elevator's own identity
// orientation: Torque path-following interiors translate but do not
// rotate per waypoint, so every Waypoint only carries a position.
func BuildFollower(elevator NodeEntity, nodes []NodeEntity, trigger TriggerVolume) Follower {
	ordered := orderNodes(elevator, nodes)
	f := Follower{
		Name:      elevator.Props["targetname"],
		Datablock: elevator.Props["datablock"],
		Trigger:   trigger,
	}
	for i, n := range ordered {
		ms := 1000
		if v, ok := n.Props["ms_to_next"]; ok {
			if parsed, err := strconv.Atoi(v); err == nil {
				ms = parsed
			}
		}
		if i == len(ordered)-1 {
			ms = 0
		}
		f.Waypoints = append(f.Waypoints, Waypoint{Position: n.Origin, MSToNext: ms})
	}
	return f
}

func orderNodes(elevator NodeEntity, nodes []NodeEntity) []NodeEntity {
	byName := make(map[string]NodeEntity, len(nodes))
	for _, n := range nodes {
		if tn := n.Props["targetname"]; tn != "" {
			byName[tn] = n
		}
	}

	start := elevator.Props["target"]
	var chain []NodeEntity
	seen := make(map[string]bool)
	cur := start
	for cur != "" && !seen[cur] {
		n, ok := byName[cur]
		if !ok {
			break
		}
		seen[cur] = true
		chain = append(chain, n)
		cur = n.Props["target"]
	}
	if len(chain) == len(nodes) {
		return chain
	}

	rest := make([]NodeEntity, 0, len(nodes))
	for _, n := range nodes {
		if tn := n.Props["targetname"]; !seen[tn] {
			rest = append(rest, n)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return rest[i].Origin.Sub(elevator.Origin).Len() < rest[j].Origin.Sub(elevator.Origin).Len()
	})
	return append(chain, rest...)
}
