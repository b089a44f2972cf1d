// Package act holds the per-unit decision routines: build a goal set from the
// live game, walk toward it under the unit's move budget, then take at most
// one gated action. Every routine re-reads the game after each authority call.
package act

import (
	"context"

	"catastrophe.ai/internal/game/grid"
	"catastrophe.ai/internal/game/model"
)

// restThreshold is the energy below which goal-directed routines detour to rest.
func restThreshold(g *model.Game) float64 {
	if j, ok := g.Jobs.Lookup(model.Missionary); ok {
		return j.ActionCost
	}
	return MaxEnergy
}

// RestIfNeeded walks u toward its side's shelters and rests there when its
// energy is below energyNeeded.
func RestIfNeeded(ctx context.Context, env Env, u *model.Unit, energyNeeded float64) error {
	g, cur := env.unit(u)
	if cur == nil || cur.Energy >= energyNeeded || cur.Owner == nil {
		return nil
	}

	if err := Move(ctx, env, cur, TileGoal(ShelterNeighbors(g, cur.Owner))); err != nil {
		return err
	}

	_, cur = env.unit(u)
	if !CanRest(cur) {
		return nil
	}
	return env.rest(ctx, cur)
}

// ConvertNearby walks missionary u next to the nearest convertible target and
// converts the first target, in the given order, that is in range. At most one
// conversion happens per call.
func ConvertNearby(ctx context.Context, env Env, u *model.Unit, targets []*model.Unit) error {
	g, cur := env.unit(u)
	if cur == nil {
		return nil
	}
	if err := RestIfNeeded(ctx, env, cur, restThreshold(g)); err != nil {
		return err
	}

	g, cur = env.unit(u)
	if cur == nil {
		return nil
	}
	var goal []*model.Tile
	for _, t := range targets {
		if t == nil {
			continue
		}
		live := g.Unit(t.ID)
		if live != nil && live.Tile != nil && CanConvert(cur, live, false) {
			goal = append(goal, grid.Neighbors(live.Tile)...)
		}
	}
	if err := Move(ctx, env, cur, TileGoal(goal)); err != nil {
		return err
	}

	g, cur = env.unit(u)
	if cur == nil || !CanAct(cur) {
		return nil
	}
	for _, t := range targets {
		if t == nil {
			continue
		}
		live := g.Unit(t.ID)
		if CanConvert(cur, live, true) {
			return env.convert(ctx, cur, live.Tile)
		}
	}
	return nil
}

// ChangeJobNearCat walks u next to its side's cat and switches it to job once
// CanChangeJob holds.
func ChangeJobNearCat(ctx context.Context, env Env, u *model.Unit, job model.JobTitle) error {
	g, cur := env.unit(u)
	if cur == nil {
		return nil
	}
	if err := RestIfNeeded(ctx, env, cur, restThreshold(g)); err != nil {
		return err
	}

	_, cur = env.unit(u)
	if cur == nil || cur.Owner == nil || cur.Owner.Cat == nil {
		return nil
	}
	if err := Move(ctx, env, cur, TileGoal(grid.Neighbors(cur.Owner.Cat.Tile))); err != nil {
		return err
	}

	_, cur = env.unit(u)
	if !CanChangeJob(cur, job) {
		return nil
	}
	return env.changeJob(ctx, cur, job)
}

// MoveToward rests if needed, then walks u toward the nearest tile satisfying isGoal.
func MoveToward(ctx context.Context, env Env, u *model.Unit, isGoal func(*model.Tile) bool) error {
	g, cur := env.unit(u)
	if cur == nil {
		return nil
	}
	if err := RestIfNeeded(ctx, env, cur, restThreshold(g)); err != nil {
		return err
	}
	return Move(ctx, env, u, isGoal)
}

// Move walks u along the shortest pathable route to a tile satisfying isGoal,
// one authority call per step, until the route or u's moves run out.
//
// Each step re-reads the game: the walk stops early, without error, if u is
// gone or out of moves, or if the next tile is no longer a pathable neighbor.
func Move(ctx context.Context, env Env, u *model.Unit, isGoal func(*model.Tile) bool) error {
	g, cur := env.unit(u)
	if cur == nil || cur.Moves < 1 || cur.Tile == nil {
		return nil
	}

	path := MoveablePath(g, []*model.Tile{cur.Tile}, isGoal)
	for i := 1; i < len(path); i++ {
		g, cur = env.unit(u)
		if cur == nil || cur.Moves < 1 || cur.Tile == nil {
			return nil
		}
		next := g.Resolve(path[i])
		if !next.IsPathable() || !grid.Adjacent(cur.Tile, next) {
			env.logf("unit %s: route blocked at (%d,%d)", cur.ID, path[i].X, path[i].Y)
			return nil
		}
		if err := env.move(ctx, cur, next); err != nil {
			return err
		}
	}
	return nil
}
