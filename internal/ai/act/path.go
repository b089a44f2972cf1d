package act

import (
	"catastrophe.ai/internal/game/grid"
	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/pathfind"
)

// TileGoal returns a goal predicate matching tiles by coordinate, so it keeps
// working against snapshots newer than the one tiles came from.
func TileGoal(tiles []*model.Tile) func(*model.Tile) bool {
	return pathfind.FromKeys(model.TileKey, tiles)
}

// MoveablePath finds the shortest walk over pathable tiles of g from any start
// to a tile satisfying isGoal. Starts may come from an older snapshot; every
// expansion happens on g. The start tile itself need not be pathable.
func MoveablePath(g *model.Game, starts []*model.Tile, isGoal func(*model.Tile) bool) []*model.Tile {
	if g == nil || len(starts) == 0 {
		return nil
	}
	res := pathfind.HashingSearch(
		model.TileKey,
		starts,
		isGoal,
		func(_, _ *model.Tile) float64 { return 1 },
		func(*model.Tile) float64 { return 0 },
		func(t *model.Tile) []*model.Tile { return grid.PathableNeighbors(g.Resolve(t)) },
	)
	return res.Path
}

// NearestPair finds the unit among units closest (by walk) to a goal tile and
// returns it with that tile.
func NearestPair(g *model.Game, units []*model.Unit, isGoal func(*model.Tile) bool) (*model.Unit, *model.Tile, bool) {
	starts := make([]*model.Tile, 0, len(units))
	byTile := make(map[model.Point]*model.Unit, len(units))
	for _, u := range units {
		if u == nil || u.Tile == nil {
			continue
		}
		starts = append(starts, u.Tile)
		byTile[u.Tile.Point()] = u
	}
	path := MoveablePath(g, starts, isGoal)
	if len(path) == 0 {
		return nil, nil, false
	}
	return byTile[path[0].Point()], path[len(path)-1], true
}

// ShelterNeighbors returns the 4-neighbors of every placed shelter owned by p.
func ShelterNeighbors(g *model.Game, p *model.Player) []*model.Tile {
	var tiles []*model.Tile
	for _, s := range g.StructuresOf(p, model.Shelter) {
		tiles = append(tiles, s.Tile)
	}
	return grid.NeighborsOfAll(tiles)
}
