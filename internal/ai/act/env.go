package act

import (
	"context"
	"errors"
	"log"

	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/protocol"
)

// World hands out the current game snapshot. Implementations may return a new
// *model.Game after every Authority call, so nothing read from a snapshot is
// valid past the next call.
type World interface {
	Game() *model.Game
}

// Authority performs side-effecting actions. Each call is one blocking round
// trip; on success the World reflects the mutation.
type Authority interface {
	Move(ctx context.Context, u *model.Unit, to *model.Tile) error
	Rest(ctx context.Context, u *model.Unit) error
	Convert(ctx context.Context, u *model.Unit, target *model.Tile) error
	ChangeJob(ctx context.Context, u *model.Unit, job model.JobTitle) error
}

// Env is passed into every routine in place of process-wide state.
type Env struct {
	World     World
	Authority Authority
	Logger    *log.Logger

	// RecordFn, when set, receives every authority call and its outcome.
	RecordFn func(rec protocol.ActionRecord)
}

func (e Env) game() *model.Game { return e.World.Game() }

// unit re-reads u from the current snapshot.
func (e Env) unit(u *model.Unit) (*model.Game, *model.Unit) {
	g := e.game()
	if g == nil || u == nil {
		return g, nil
	}
	return g, g.Unit(u.ID)
}

func (e Env) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

func (e Env) record(u *model.Unit, action string, target *model.Tile, job model.JobTitle, err error) {
	if e.RecordFn == nil {
		return
	}
	rec := protocol.ActionRecord{
		UnitID: u.ID,
		Action: action,
		Job:    string(job),
		OK:     err == nil,
	}
	if g := e.game(); g != nil {
		rec.Turn = g.Turn
		rec.Player = g.CurrentPlayer
	}
	if target != nil {
		rec.Target = &[2]int{target.X, target.Y}
	}
	if err != nil {
		rec.Code = protocol.ErrInternal
		var rej *protocol.RejectError
		if errors.As(err, &rej) {
			rec.Code = rej.Code
		}
		rec.Message = err.Error()
	}
	e.RecordFn(rec)
}

func (e Env) move(ctx context.Context, u *model.Unit, to *model.Tile) error {
	err := e.Authority.Move(ctx, u, to)
	e.record(u, protocol.ActionMove, to, "", err)
	return err
}

func (e Env) rest(ctx context.Context, u *model.Unit) error {
	err := e.Authority.Rest(ctx, u)
	e.record(u, protocol.ActionRest, nil, "", err)
	if err == nil {
		e.logf("unit %s rested", u.ID)
	}
	return err
}

func (e Env) convert(ctx context.Context, u *model.Unit, target *model.Tile) error {
	err := e.Authority.Convert(ctx, u, target)
	e.record(u, protocol.ActionConvert, target, "", err)
	if err == nil {
		e.logf("unit %s converted (%d,%d)", u.ID, target.X, target.Y)
	}
	return err
}

func (e Env) changeJob(ctx context.Context, u *model.Unit, job model.JobTitle) error {
	err := e.Authority.ChangeJob(ctx, u, job)
	e.record(u, protocol.ActionChangeJob, nil, job, err)
	if err == nil {
		e.logf("unit %s became %s", u.ID, job)
	}
	return err
}
