// Package entityconv converts scene entities that are neither worldspawn
// nor owned by package pathway into DIF GameEntity records: anything
// carrying a "game_class" property. Grounded on csx.rs's game-entity
// filter (excludes worldspawn, Door_Elevator, path_node, and anything
// missing game_class; defaults datablock to the classname; strips
// datablock/game_class out of the carried property bag).
package entityconv

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/diforge/difc/internal/pathway"
)

// Source is the minimal shape entityconv needs from a parsed scene entity.
type Source struct {
	Classname string
	Origin    mgl32.Vec3
	Props     map[string]string
}

// GameEntity is one generic, engine-defined entity placed in the world:
// a datablock name, a position, a script-visible class, and whatever
// other properties the level designer set.
type GameEntity struct {
	Datablock  string
	Position   mgl32.Vec3
	GameClass  string
	Properties map[string]string
}

// Convert filters and converts every entity worth exporting as a generic
// GameEntity: not worldspawn, not one of package pathway's classnames,
// and carrying a non-empty "game_class" property.
func Convert(entities []Source) []GameEntity {
	var out []GameEntity
	for _, e := range entities {
		if e.Classname == "worldspawn" {
			continue
		}
		if pathway.ExcludedClassnames[e.Classname] {
			continue
		}
		gc, ok := e.Props["game_class"]
		if !ok || gc == "" {
			continue
		}
		db := e.Props["datablock"]
		if db == "" {
			db = e.Classname
		}
		props := make(map[string]string, len(e.Props))
		for k, v := range e.Props {
			if k == "datablock" || k == "game_class" {
				continue
			}
			props[k] = v
		}
		out = append(out, GameEntity{Datablock: db, Position: e.Origin, GameClass: gc, Properties: props})
	}
	return out
}
