// Package turn drives one side's turn: slot units into jobs, then run the
// missionaries. Phases are leaves of a behavior tree ticked once per turn.
package turn

import (
	"context"
	"errors"
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"

	"catastrophe.ai/internal/ai/act"
	"catastrophe.ai/internal/game/grid"
	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/tuning"
)

type Bot struct {
	env      act.Env
	playerID string
	cfg      tuning.Bot

	desired  []model.JobTitle
	overflow model.JobTitle
	spawn    []*model.Tile
}

func New(env act.Env, playerID string, cfg tuning.Bot) *Bot {
	desired, overflow := cfg.JobList()
	return &Bot{env: env, playerID: playerID, cfg: cfg, desired: desired, overflow: overflow}
}

// Start resolves the spawn tiles once. They stay valid across snapshots
// because goals compare tiles by coordinate.
func (b *Bot) Start() error {
	g := b.env.World.Game()
	if g == nil {
		return fmt.Errorf("start: no game")
	}
	if g.Player(b.playerID) == nil {
		return fmt.Errorf("start: unknown player %q", b.playerID)
	}
	for _, t := range g.SpawnTiles() {
		if t != nil {
			b.spawn = append(b.spawn, t)
		}
	}
	return nil
}

// RunTurn ticks the jobs phase, then the missionary phase. A phase stops the
// turn only on an error it could not absorb.
func (b *Bot) RunTurn(ctx context.Context) error {
	tree := bt.New(
		bt.Sequence,
		b.leaf(ctx, "jobs", b.Jobs),
		b.leaf(ctx, "missionaries", b.Missionaries),
	)
	status, err := tree.Tick()
	if err != nil {
		return err
	}
	if status != bt.Success {
		return fmt.Errorf("turn ended with status %v", status)
	}
	return nil
}

func (b *Bot) leaf(ctx context.Context, name string, phase func(context.Context) error) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if err := ctx.Err(); err != nil {
			return bt.Failure, err
		}
		if err := phase(ctx); err != nil {
			return bt.Failure, fmt.Errorf("%s: %w", name, err)
		}
		return bt.Success, nil
	})
}

// absorb swallows authority rejections when the bot is tuned to keep going
// with its other units.
func (b *Bot) absorb(unitID string, err error) error {
	if err == nil {
		return nil
	}
	var rej *protocol.RejectError
	if b.cfg.ContinueOnReject && errors.As(err, &rej) {
		b.logf("unit %s: %v", unitID, rej)
		return nil
	}
	return err
}

func (b *Bot) logf(format string, args ...any) {
	if b.env.Logger != nil {
		b.env.Logger.Printf(format, args...)
	}
}

func (b *Bot) us(g *model.Game) *model.Player { return g.Player(b.playerID) }

// Jobs walks every unit that is not already in a slot's job toward the cat to
// take it.
func (b *Bot) Jobs(ctx context.Context) error {
	g := b.env.World.Game()
	us := b.us(g)
	var units []*model.Unit
	for _, u := range g.UnitsOf(us, "") {
		if us.Cat != nil && u.ID == us.Cat.ID {
			continue
		}
		units = append(units, u)
	}

	for _, s := range SlotJobs(units, b.desired, b.overflow) {
		if !s.Change {
			continue
		}
		if err := b.absorb(s.Unit.ID, act.ChangeJobNearCat(ctx, b.env, s.Unit, s.Job)); err != nil {
			return err
		}
	}
	return nil
}

// Missionaries converts what each missionary can reach, posts the nearest two
// missionaries by the spawn tiles, and sends one with moves left toward
// tired owned units of either side.
func (b *Bot) Missionaries(ctx context.Context) error {
	g := b.env.World.Game()
	for _, m := range g.UnitsOf(b.us(g), model.Missionary) {
		if err := b.absorb(m.ID, act.ConvertNearby(ctx, b.env, m, b.env.World.Game().Units)); err != nil {
			return err
		}
	}

	if err := b.guardSpawns(ctx); err != nil {
		return err
	}
	return b.rescue(ctx)
}

func (b *Bot) missionaryMoves(g *model.Game) int {
	if j, ok := g.Jobs.Lookup(model.Missionary); ok {
		return j.Moves
	}
	return 0
}

func (b *Bot) guardSpawns(ctx context.Context) error {
	if len(b.spawn) == 0 {
		return nil
	}
	g := b.env.World.Game()
	first, tile, ok := act.NearestPair(g, g.UnitsOf(b.us(g), model.Missionary), act.TileGoal(b.spawn))
	if !ok {
		return nil
	}
	if err := b.absorb(first.ID, act.Move(ctx, b.env, first, b.nearTile(g, tile))); err != nil {
		return err
	}

	var rest []*model.Tile
	for _, t := range b.spawn {
		if t.Point() != tile.Point() {
			rest = append(rest, t)
		}
	}
	if len(rest) == 0 {
		return nil
	}
	g = b.env.World.Game()
	var others []*model.Unit
	for _, m := range g.UnitsOf(b.us(g), model.Missionary) {
		if m.ID != first.ID {
			others = append(others, m)
		}
	}
	second, tile2, ok := act.NearestPair(g, others, act.TileGoal(rest))
	if !ok {
		return nil
	}
	return b.absorb(second.ID, act.Move(ctx, b.env, second, b.nearTile(g, tile2)))
}

// nearTile matches tiles within one missionary move budget of t.
func (b *Bot) nearTile(g *model.Game, t *model.Tile) func(*model.Tile) bool {
	steps := b.missionaryMoves(g)
	at := t.Point()
	return func(c *model.Tile) bool { return grid.InStepRange(at, c.Point(), steps) }
}

func (b *Bot) rescue(ctx context.Context) error {
	g := b.env.World.Game()
	us := b.us(g)
	var runner *model.Unit
	for _, m := range g.UnitsOf(us, model.Missionary) {
		if m.Moves > 0 {
			runner = m
			break
		}
	}
	if runner == nil {
		return nil
	}

	// Owned units of either side; neutrals are skipped.
	var tired []model.Point
	for _, u := range g.Units {
		if u.Owner != nil && u.Tile != nil && u.Energy < b.cfg.RescueEnergyBelow {
			tired = append(tired, u.Tile.Point())
		}
	}
	if len(tired) == 0 {
		return nil
	}
	steps := b.missionaryMoves(g)
	near := func(t *model.Tile) bool {
		for _, p := range tired {
			if grid.InStepRange(p, t.Point(), steps) {
				return true
			}
		}
		return false
	}
	return b.absorb(runner.ID, act.MoveToward(ctx, b.env, runner, near))
}
