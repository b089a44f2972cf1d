// Package grid holds pure neighborhood queries over model tiles.
package grid

import "catastrophe.ai/internal/game/model"

// Neighbors returns the present 4-neighbors of t in N, E, S, W order.
func Neighbors(t *model.Tile) []*model.Tile {
	if t == nil {
		return nil
	}
	out := make([]*model.Tile, 0, 4)
	for _, n := range [...]*model.Tile{t.North, t.East, t.South, t.West} {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// PathableNeighbors is Neighbors filtered by IsPathable.
func PathableNeighbors(t *model.Tile) []*model.Tile {
	nbs := Neighbors(t)
	out := nbs[:0]
	for _, n := range nbs {
		if n.IsPathable() {
			out = append(out, n)
		}
	}
	return out
}

// SquareNeighbors returns the ring of up to 8 tiles around t, reached through
// neighbor links only.
func SquareNeighbors(t *model.Tile) []*model.Tile {
	if t == nil {
		return nil
	}
	var nw, ne, sw, se *model.Tile
	if t.North != nil {
		nw, ne = t.North.West, t.North.East
	}
	if t.South != nil {
		sw, se = t.South.West, t.South.East
	}
	out := make([]*model.Tile, 0, 8)
	for _, n := range [...]*model.Tile{nw, t.North, ne, t.West, t.East, sw, t.South, se} {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// NeighborsOfAll concatenates Neighbors of every tile, duplicates included.
func NeighborsOfAll(tiles []*model.Tile) []*model.Tile {
	var out []*model.Tile
	for _, t := range tiles {
		out = append(out, Neighbors(t)...)
	}
	return out
}

// Adjacent reports whether b is linked as a direct 4-neighbor of a.
func Adjacent(a, b *model.Tile) bool {
	if a == nil || b == nil {
		return false
	}
	return a.North == b || a.East == b || a.South == b || a.West == b
}

func Manhattan(a, b model.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// InStepRange reports whether b is at most steps 4-moves from a, ignoring obstacles.
func InStepRange(a, b model.Point, steps int) bool {
	return Manhattan(a, b) <= steps
}

// InSquareRadius reports whether the Chebyshev distance between a and b is at most r.
func InSquareRadius(a, b model.Point, r int) bool {
	return abs(a.X-b.X) <= r && abs(a.Y-b.Y) <= r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
