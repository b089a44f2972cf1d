package act

import (
	"context"
	"errors"
	"testing"

	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/referee"
)

// snapshots serves a freshly decoded game on every read, the way a remote
// client does, so no pointer survives an authority call.
type snapshots struct{ ref *referee.Referee }

func (s snapshots) Game() *model.Game {
	g, err := model.FromState(s.ref.Snapshot())
	if err != nil {
		panic(err)
	}
	return g
}

func localEnv(g *model.Game) (Env, *[]protocol.ActionRecord) {
	ref := referee.New(g, 0, nil)
	recs := &[]protocol.ActionRecord{}
	return Env{
		World:     ref,
		Authority: ref,
		RecordFn:  func(rec protocol.ActionRecord) { *recs = append(*recs, rec) },
	}, recs
}

func remoteEnv(g *model.Game) (Env, *[]protocol.ActionRecord) {
	env, recs := localEnv(g)
	env.World = snapshots{ref: env.Authority.(*referee.Referee)}
	return env, recs
}

func countActions(recs []protocol.ActionRecord, action string) int {
	n := 0
	for _, r := range recs {
		if r.Action == action {
			n++
		}
	}
	return n
}

func TestCanAct_FalseOnceActed(t *testing.T) {
	g := model.MustParseMap("M")
	u := g.Unit("u1")
	if !CanAct(u) {
		t.Fatalf("fresh missionary should act")
	}
	u.Acted = true
	u.Energy = 1000
	if CanAct(u) {
		t.Fatalf("acted unit can still act")
	}
}

func TestCanRest_FalseAtFullEnergy(t *testing.T) {
	g := model.MustParseMap("SH")
	u := g.Unit("u1")
	if CanRest(u) {
		t.Fatalf("full-energy unit can rest")
	}
	u.Energy = 99
	if !CanRest(u) {
		t.Fatalf("tired unit next to own shelter cannot rest")
	}
	u.Owner = g.Player("p1")
	if CanRest(u) {
		t.Fatalf("unit rests at an enemy shelter")
	}
}

func TestCanChangeJob_SquareRadius(t *testing.T) {
	g := model.MustParseMap(
		"C..",
		".H.",
		"..H",
	)
	if !CanChangeJob(g.Unit("u2"), model.Soldier) {
		t.Fatalf("diagonal neighbor of cat should qualify")
	}
	if CanChangeJob(g.Unit("u3"), model.Soldier) {
		t.Fatalf("unit two squares away should not qualify")
	}
	if CanChangeJob(g.Unit("u1"), model.Soldier) {
		t.Fatalf("cat changed job")
	}
}

func TestRestIfNeeded_RestsOnceThenNoop(t *testing.T) {
	g := model.MustParseMap("SH..")
	u := g.Unit("u1")
	u.Energy, u.Moves = 40, 3
	env, recs := localEnv(g)

	if err := RestIfNeeded(context.Background(), env, u, 100); err != nil {
		t.Fatalf("rest: %v", err)
	}
	if u.Energy != 100 || !u.Acted {
		t.Fatalf("energy=%v acted=%v", u.Energy, u.Acted)
	}
	if err := RestIfNeeded(context.Background(), env, u, 100); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if n := countActions(*recs, protocol.ActionRest); n != 1 {
		t.Fatalf("rest calls=%d want 1", n)
	}
}

func TestRestIfNeeded_WalksToShelter(t *testing.T) {
	g := model.MustParseMap("S...H")
	u := g.Unit("u1")
	u.Energy = 10
	env, recs := localEnv(g)

	// (1,0) borders the shelter, three steps away.
	if err := RestIfNeeded(context.Background(), env, u, 100); err != nil {
		t.Fatalf("rest: %v", err)
	}
	if n := countActions(*recs, protocol.ActionMove); n != 2 {
		t.Fatalf("moves=%d want 2", n)
	}
	if u.Energy != 10 {
		t.Fatalf("rested out of range")
	}
	if p := u.Tile.Point(); p != (model.Point{X: 2, Y: 0}) {
		t.Fatalf("unit at %v", p)
	}
}

func TestMove_RespectsBudgetAndPathability(t *testing.T) {
	g := model.MustParseMap(
		"H.#.....",
		"..#.##..",
		"....#...",
	)
	u := g.Unit("u1")
	u.Moves = 3
	env, recs := remoteEnv(g)

	goal := TileGoal([]*model.Tile{g.TileAt(7, 0)})
	if err := Move(context.Background(), env, u, goal); err != nil {
		t.Fatalf("move: %v", err)
	}
	if n := countActions(*recs, protocol.ActionMove); n != 3 {
		t.Fatalf("moves=%d want 3", n)
	}
	for _, rec := range *recs {
		if !rec.OK {
			t.Fatalf("rejected step %+v", rec)
		}
		if s := g.TileAt(rec.Target[0], rec.Target[1]).Structure; s != nil && !s.Type.Passable() {
			t.Fatalf("stepped onto %s at %v", s.Type, *rec.Target)
		}
	}
	if got := g.Unit("u1").Moves; got != 0 {
		t.Fatalf("moves left=%d", got)
	}
	if err := Move(context.Background(), env, u, goal); err != nil || len(*recs) != 3 {
		t.Fatalf("exhausted unit still moved: err=%v recs=%d", err, len(*recs))
	}
}

func TestMove_UnreachableGoalIsNoop(t *testing.T) {
	g := model.MustParseMap("H#.")
	env, recs := localEnv(g)
	if err := Move(context.Background(), env, g.Unit("u1"), TileGoal([]*model.Tile{g.TileAt(2, 0)})); err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(*recs) != 0 {
		t.Fatalf("records=%v", *recs)
	}
}

func TestConvertNearby_FirstTargetOnly(t *testing.T) {
	g := model.MustParseMap(
		".#n",
		"M..",
		".#n",
	)
	first, second := g.Unit("u1"), g.Unit("u3")
	env, recs := remoteEnv(g)

	if err := ConvertNearby(context.Background(), env, g.Unit("u2"), []*model.Unit{first, second}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if n := countActions(*recs, protocol.ActionConvert); n != 1 {
		t.Fatalf("conversions=%d want 1", n)
	}
	if o := g.Unit("u1").Owner; o == nil || o.ID != "p0" {
		t.Fatalf("first target owner=%v", o)
	}
	if g.Unit("u3").Owner != nil {
		t.Fatalf("second target converted")
	}
	if p := g.Unit("u2").Tile.Point(); p != (model.Point{X: 2, Y: 1}) {
		t.Fatalf("missionary at %v", p)
	}
}

func TestConvertNearby_SkipsOwnedTargets(t *testing.T) {
	g := model.MustParseMap("MH")
	env, recs := localEnv(g)
	if err := ConvertNearby(context.Background(), env, g.Unit("u1"), []*model.Unit{g.Unit("u2"), nil}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(*recs) != 0 {
		t.Fatalf("records=%v", *recs)
	}
}

func TestChangeJobNearCat_NotYetAdjacent(t *testing.T) {
	g := model.MustParseMap("C.....H")
	u := g.Unit("u2")
	env, recs := remoteEnv(g)

	if err := ChangeJobNearCat(context.Background(), env, u, model.Soldier); err != nil {
		t.Fatalf("change job: %v", err)
	}
	if n := countActions(*recs, protocol.ActionMove); n != 2 {
		t.Fatalf("moves=%d want 2", n)
	}
	if countActions(*recs, protocol.ActionChangeJob) != 0 {
		t.Fatalf("job changed out of range")
	}
	if got := g.Unit("u2"); got.JobTitle() != model.FreshHuman || got.Tile.X != 4 {
		t.Fatalf("job=%s x=%d", got.JobTitle(), got.Tile.X)
	}
}

func TestChangeJobNearCat_Adjacent(t *testing.T) {
	g := model.MustParseMap("C..H")
	env, _ := localEnv(g)
	u := g.Unit("u2")
	if err := ChangeJobNearCat(context.Background(), env, u, model.Gatherer); err != nil {
		t.Fatalf("change job: %v", err)
	}
	if u.JobTitle() != model.Gatherer || u.Tile.X != 1 {
		t.Fatalf("job=%s x=%d", u.JobTitle(), u.Tile.X)
	}
}

func TestNearestPair(t *testing.T) {
	g := model.MustParseMap(
		"M....M",
		"......",
		"....#.",
	)
	u, tile, ok := NearestPair(g, g.UnitsOf(g.Player("p0"), model.Missionary), TileGoal([]*model.Tile{g.TileAt(3, 2)}))
	if !ok {
		t.Fatalf("no pair")
	}
	if u.ID != "u2" || tile.Point() != (model.Point{X: 3, Y: 2}) {
		t.Fatalf("pair=%s %v", u.ID, tile.Point())
	}
	if _, _, ok := NearestPair(g, nil, TileGoal([]*model.Tile{g.TileAt(3, 2)})); ok {
		t.Fatalf("pair found without units")
	}
}

type rejecting struct{}

func (rejecting) Move(context.Context, *model.Unit, *model.Tile) error {
	return protocol.Reject(protocol.ErrStale, "state moved on")
}
func (rejecting) Rest(context.Context, *model.Unit) error { return nil }
func (rejecting) Convert(context.Context, *model.Unit, *model.Tile) error {
	return nil
}
func (rejecting) ChangeJob(context.Context, *model.Unit, model.JobTitle) error { return nil }

func TestMove_PropagatesRejection(t *testing.T) {
	g := model.MustParseMap("H..")
	env, recs := localEnv(g)
	env.Authority = rejecting{}

	err := Move(context.Background(), env, g.Unit("u1"), TileGoal([]*model.Tile{g.TileAt(2, 0)}))
	var rej *protocol.RejectError
	if !errors.As(err, &rej) || rej.Code != protocol.ErrStale {
		t.Fatalf("err=%v", err)
	}
	if len(*recs) != 1 || (*recs)[0].OK || (*recs)[0].Code != protocol.ErrStale {
		t.Fatalf("records=%+v", *recs)
	}
}

// crowding drops a neutral unit on block after the first accepted move.
type crowding struct {
	*referee.Referee
	block model.Point
	moves int
}

func (c *crowding) Move(ctx context.Context, u *model.Unit, to *model.Tile) error {
	if err := c.Referee.Move(ctx, u, to); err != nil {
		return err
	}
	c.moves++
	if c.moves == 1 {
		g := c.Game()
		job, _ := g.Jobs.Lookup(model.FreshHuman)
		return g.AddUnit(&model.Unit{ID: "late", Energy: MaxEnergy, Job: job}, c.block.X, c.block.Y)
	}
	return nil
}

func TestMove_StopsWhenRouteFillsMidway(t *testing.T) {
	for _, remote := range []bool{false, true} {
		g := model.MustParseMap("H...")
		u := g.Unit("u1")
		u.Moves = 3
		env, recs := localEnv(g)
		if remote {
			env, recs = remoteEnv(g)
		}
		auth := &crowding{Referee: env.Authority.(*referee.Referee), block: model.Point{X: 2, Y: 0}}
		env.Authority = auth

		if err := Move(context.Background(), env, u, TileGoal([]*model.Tile{g.TileAt(3, 0)})); err != nil {
			t.Fatalf("remote=%v: move: %v", remote, err)
		}
		if auth.moves != 1 || len(*recs) != 1 {
			t.Fatalf("remote=%v: moves=%d records=%d want 1", remote, auth.moves, len(*recs))
		}
		if p := g.Unit("u1").Tile.Point(); p != (model.Point{X: 1, Y: 0}) {
			t.Fatalf("remote=%v: unit at %v", remote, p)
		}
	}
}
