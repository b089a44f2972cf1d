// Package referee is the authority that validates and applies actions to a game.
package referee

import (
	"context"
	"log"
	"sync"

	"catastrophe.ai/internal/game/grid"
	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/protocol"
)

type Referee struct {
	mu   sync.Mutex
	game *model.Game
	log  *log.Logger

	maxTurns int
	over     bool
	winner   string
	reason   string

	// OnAction, when set, sees every applied or rejected action.
	OnAction func(rec protocol.ActionRecord)
}

// New takes ownership of g. maxTurns <= 0 means no turn limit.
func New(g *model.Game, maxTurns int, logger *log.Logger) *Referee {
	return &Referee{game: g, maxTurns: maxTurns, log: logger}
}

// Game returns the live game. Only in-process callers that do not race with
// Apply may use it.
func (r *Referee) Game() *model.Game { return r.game }

func (r *Referee) Snapshot() protocol.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.State()
}

func (r *Referee) CurrentPlayer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.CurrentPlayer
}

// TurnRecord counts units per side for the turn log.
func (r *Referee) TurnRecord(player string, turn int) protocol.TurnRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := protocol.TurnRecord{Turn: turn, Player: player, Units: map[string]int{}}
	for _, u := range r.game.Units {
		if u.Owner == nil {
			rec.Neutral++
			continue
		}
		rec.Units[u.Owner.ID]++
	}
	return rec
}

// Over reports whether the game has ended, with the winner ("" for a draw).
func (r *Referee) Over() (over bool, winner string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.over, r.winner, r.reason
}

// Move, Rest, Convert and ChangeJob act on behalf of the current player.

func (r *Referee) Move(ctx context.Context, u *model.Unit, to *model.Tile) error {
	return r.inProcess(ctx, protocol.ActMsg{Action: protocol.ActionMove, UnitID: u.ID, Target: &[2]int{to.X, to.Y}})
}

func (r *Referee) Rest(ctx context.Context, u *model.Unit) error {
	return r.inProcess(ctx, protocol.ActMsg{Action: protocol.ActionRest, UnitID: u.ID})
}

func (r *Referee) Convert(ctx context.Context, u *model.Unit, target *model.Tile) error {
	return r.inProcess(ctx, protocol.ActMsg{Action: protocol.ActionConvert, UnitID: u.ID, Target: &[2]int{target.X, target.Y}})
}

func (r *Referee) ChangeJob(ctx context.Context, u *model.Unit, job model.JobTitle) error {
	return r.inProcess(ctx, protocol.ActMsg{Action: protocol.ActionChangeJob, UnitID: u.ID, Job: string(job)})
}

func (r *Referee) inProcess(ctx context.Context, act protocol.ActMsg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Apply(r.CurrentPlayer(), act)
}

// Apply validates act for player and mutates the game. A refused action returns
// a *protocol.RejectError and leaves the game untouched.
func (r *Referee) Apply(player string, act protocol.ActMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.applyLocked(player, act)
	if r.OnAction != nil {
		rec := protocol.ActionRecord{
			Turn:   r.game.Turn,
			Player: player,
			UnitID: act.UnitID,
			Action: act.Action,
			Target: act.Target,
			Job:    act.Job,
			OK:     err == nil,
		}
		if err != nil {
			rec.Code = err.Code
			rec.Message = err.Message
		}
		r.OnAction(rec)
	}
	if err != nil {
		return err
	}
	return nil
}

func (r *Referee) applyLocked(player string, act protocol.ActMsg) *protocol.RejectError {
	g := r.game
	if r.over {
		return protocol.Reject(protocol.ErrGameOver, "game is over")
	}
	if player != g.CurrentPlayer {
		return protocol.Reject(protocol.ErrNotYourTurn, "current player is %s", g.CurrentPlayer)
	}
	u := g.Unit(act.UnitID)
	if u == nil {
		return protocol.Reject(protocol.ErrInvalidTarget, "unknown unit %q", act.UnitID)
	}
	if u.Owner == nil || u.Owner.ID != player {
		return protocol.Reject(protocol.ErrNoPermission, "unit %s is not yours", u.ID)
	}

	switch act.Action {
	case protocol.ActionMove:
		return r.move(u, act.Target)
	case protocol.ActionRest:
		return r.rest(u)
	case protocol.ActionConvert:
		return r.convert(u, act.Target)
	case protocol.ActionChangeJob:
		return r.changeJob(u, act.Job)
	default:
		return protocol.Reject(protocol.ErrBadRequest, "unknown action %q", act.Action)
	}
}

func (r *Referee) target(u *model.Unit, pos *[2]int) (*model.Tile, *protocol.RejectError) {
	if pos == nil {
		return nil, protocol.Reject(protocol.ErrBadRequest, "missing target")
	}
	if u.Tile == nil {
		return nil, protocol.Reject(protocol.ErrInvalidTarget, "unit %s is not on the board", u.ID)
	}
	t := r.game.TileAt(pos[0], pos[1])
	if t == nil {
		return nil, protocol.Reject(protocol.ErrInvalidTarget, "(%d,%d) out of bounds", pos[0], pos[1])
	}
	if !grid.Adjacent(u.Tile, t) {
		return nil, protocol.Reject(protocol.ErrInvalidTarget, "(%d,%d) is not adjacent to %s", pos[0], pos[1], u.ID)
	}
	return t, nil
}

func (r *Referee) move(u *model.Unit, pos *[2]int) *protocol.RejectError {
	if u.Moves < 1 {
		return protocol.Reject(protocol.ErrNoResource, "unit %s has no moves left", u.ID)
	}
	to, rej := r.target(u, pos)
	if rej != nil {
		return rej
	}
	if !to.IsPathable() {
		return protocol.Reject(protocol.ErrBlocked, "(%d,%d) is not pathable", to.X, to.Y)
	}
	r.game.MoveUnit(u, to)
	u.Moves--
	return nil
}

func (r *Referee) rest(u *model.Unit) *protocol.RejectError {
	if u.Acted {
		return protocol.Reject(protocol.ErrConflict, "unit %s already acted", u.ID)
	}
	if u.Energy >= 100 {
		return protocol.Reject(protocol.ErrConflict, "unit %s is already rested", u.ID)
	}
	near := false
	for _, t := range grid.Neighbors(u.Tile) {
		if s := t.Structure; s != nil && s.Type == model.Shelter && model.SameOwner(s.Owner, u.Owner) {
			near = true
			break
		}
	}
	if !near {
		return protocol.Reject(protocol.ErrInvalidTarget, "unit %s is not next to an own shelter", u.ID)
	}
	u.Energy = 100
	u.Acted = true
	return nil
}

func (r *Referee) convert(u *model.Unit, pos *[2]int) *protocol.RejectError {
	if u.JobTitle() != model.Missionary {
		return protocol.Reject(protocol.ErrNoPermission, "only missionaries convert")
	}
	if u.Acted {
		return protocol.Reject(protocol.ErrConflict, "unit %s already acted", u.ID)
	}
	if u.Energy < u.Job.ActionCost {
		return protocol.Reject(protocol.ErrNoResource, "unit %s energy %.0f < %.0f", u.ID, u.Energy, u.Job.ActionCost)
	}
	t, rej := r.target(u, pos)
	if rej != nil {
		return rej
	}
	target := t.Unit
	if target == nil {
		return protocol.Reject(protocol.ErrInvalidTarget, "no unit at (%d,%d)", t.X, t.Y)
	}
	if target.Owner != nil {
		return protocol.Reject(protocol.ErrInvalidTarget, "unit %s is not neutral", target.ID)
	}
	target.Owner = u.Owner
	target.Moves = 0
	target.Acted = true
	u.Energy -= u.Job.ActionCost
	u.Acted = true
	return nil
}

func (r *Referee) changeJob(u *model.Unit, title string) *protocol.RejectError {
	jt, ok := model.ParseJobTitle(title)
	if !ok {
		return protocol.Reject(protocol.ErrBadRequest, "unknown job %q", title)
	}
	job, ok := r.game.Jobs.Lookup(jt)
	if !ok {
		return protocol.Reject(protocol.ErrInternal, "job %q not resolved", title)
	}
	if u.Acted {
		return protocol.Reject(protocol.ErrConflict, "unit %s already acted", u.ID)
	}
	if u.JobTitle() == jt {
		return protocol.Reject(protocol.ErrBadRequest, "unit %s is already a %s", u.ID, jt)
	}
	if u.JobTitle().Privileged() || jt.Privileged() {
		return protocol.Reject(protocol.ErrNoPermission, "%s cannot be changed", model.CatOverlord)
	}
	if u.Energy < 100 {
		return protocol.Reject(protocol.ErrNoResource, "unit %s needs full energy", u.ID)
	}
	cat := u.Owner.Cat
	if u.Tile == nil || cat == nil || cat.Tile == nil || !grid.InSquareRadius(cat.Tile.Point(), u.Tile.Point(), 1) {
		return protocol.Reject(protocol.ErrInvalidTarget, "unit %s is not next to its cat", u.ID)
	}
	u.Job = job
	u.Moves = min(u.Moves, job.Moves)
	u.Acted = true
	return nil
}

// EndTurn hands the board to the next player and refreshes that player's units.
func (r *Referee) EndTurn(player string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.game
	if r.over {
		return protocol.Reject(protocol.ErrGameOver, "game is over")
	}
	if player != g.CurrentPlayer {
		return protocol.Reject(protocol.ErrNotYourTurn, "current player is %s", g.CurrentPlayer)
	}
	g.Turn++
	if r.maxTurns > 0 && g.Turn >= r.maxTurns {
		r.finishLocked("turn limit reached")
		return nil
	}
	next := g.Opponent(player)
	if next == nil {
		next = g.Player(player)
	}
	g.CurrentPlayer = next.ID
	for _, u := range g.UnitsOf(next, "") {
		if u.Job != nil {
			u.Moves = u.Job.Moves
		}
		u.Acted = false
	}
	if r.log != nil {
		r.log.Printf("turn %d: %s to move", g.Turn, next.ID)
	}
	return nil
}

// finishLocked ends the game; the side holding more units wins.
func (r *Referee) finishLocked(reason string) {
	r.over = true
	r.reason = reason
	best, bestN, tie := "", -1, false
	for _, p := range r.game.Players {
		n := len(r.game.UnitsOf(p, ""))
		switch {
		case n > bestN:
			best, bestN, tie = p.ID, n, false
		case n == bestN:
			tie = true
		}
	}
	if !tie {
		r.winner = best
	}
	if r.log != nil {
		r.log.Printf("game over at turn %d: %s (winner=%q)", r.game.Turn, reason, r.winner)
	}
}
