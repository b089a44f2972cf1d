package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/protocol"
)

// Client is one seat at a remote game. Every action is a blocking round trip;
// the reply's state replaces the local snapshot, so callers must re-read Game
// after each call. A Client is not safe for concurrent use.
type Client struct {
	conn *websocket.Conn
	log  *log.Logger

	gameID   string
	playerID string
	game     *model.Game

	// ActTimeout bounds one ACT round trip when ctx has no deadline.
	ActTimeout time.Duration
}

// Dial connects, says HELLO, and waits for WELCOME.
func Dial(ctx context.Context, url, name string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	c := &Client{conn: conn, log: logger, ActTimeout: 30 * time.Second}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &w); err != nil || w.Type != protocol.TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected WELCOME, got %.80s", msg)
	}
	if err := c.setState(w.State); err != nil {
		conn.Close()
		return nil, err
	}
	c.gameID, c.playerID = w.GameID, w.PlayerID
	c.logf("WELCOME game_id=%s player_id=%s %dx%d", w.GameID, w.PlayerID, w.State.Width, w.State.Height)
	return c, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) GameID() string   { return c.gameID }
func (c *Client) PlayerID() string { return c.playerID }

// Game returns the latest snapshot.
func (c *Client) Game() *model.Game { return c.game }

func (c *Client) setState(st protocol.GameState) error {
	g, err := model.FromState(st)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	c.game = g
	return nil
}

func (c *Client) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// NextTurn blocks until the server hands us the turn or the game ends. over is
// non-nil exactly when the game is over.
func (c *Client) NextTurn(ctx context.Context) (turn int, over *protocol.GameOverMsg, err error) {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()
	_ = c.conn.SetReadDeadline(time.Time{})

	for {
		msg, base, err := c.read(ctx)
		if err != nil {
			return 0, nil, err
		}
		switch base.Type {
		case protocol.TypeRunTurn:
			var rt protocol.RunTurnMsg
			if err := json.Unmarshal(msg, &rt); err != nil {
				return 0, nil, fmt.Errorf("RUN_TURN: %w", err)
			}
			if err := c.setState(rt.State); err != nil {
				return 0, nil, err
			}
			return rt.Turn, nil, nil
		case protocol.TypeGameOver:
			var g protocol.GameOverMsg
			if err := json.Unmarshal(msg, &g); err != nil {
				return 0, nil, fmt.Errorf("GAME_OVER: %w", err)
			}
			return g.Turn, &g, nil
		}
	}
}

func (c *Client) read(ctx context.Context) ([]byte, protocol.BaseMessage, error) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, protocol.BaseMessage{}, ctx.Err()
			}
			return nil, protocol.BaseMessage{}, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		return msg, base, nil
	}
}

func (c *Client) EndTurn(ctx context.Context, turn int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.WriteJSON(protocol.EndTurnMsg{
		Type:            protocol.TypeEndTurn,
		ProtocolVersion: protocol.Version,
		Turn:            turn,
	})
}

func (c *Client) Move(ctx context.Context, u *model.Unit, to *model.Tile) error {
	return c.act(ctx, protocol.ActMsg{Action: protocol.ActionMove, UnitID: u.ID, Target: &[2]int{to.X, to.Y}})
}

func (c *Client) Rest(ctx context.Context, u *model.Unit) error {
	return c.act(ctx, protocol.ActMsg{Action: protocol.ActionRest, UnitID: u.ID})
}

func (c *Client) Convert(ctx context.Context, u *model.Unit, target *model.Tile) error {
	return c.act(ctx, protocol.ActMsg{Action: protocol.ActionConvert, UnitID: u.ID, Target: &[2]int{target.X, target.Y}})
}

func (c *Client) ChangeJob(ctx context.Context, u *model.Unit, job model.JobTitle) error {
	return c.act(ctx, protocol.ActMsg{Action: protocol.ActionChangeJob, UnitID: u.ID, Job: string(job)})
}

func (c *Client) act(ctx context.Context, act protocol.ActMsg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act.Type = protocol.TypeAct
	act.ProtocolVersion = protocol.Version
	act.ID = protocol.NewRequestID(act.Action)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.ActTimeout)
	}
	_ = c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	if err := c.conn.WriteJSON(act); err != nil {
		return fmt.Errorf("send ACT: %w", err)
	}
	for {
		msg, base, err := c.read(ctx)
		if err != nil {
			return fmt.Errorf("await ACT_RESULT %s: %w", act.ID, err)
		}
		switch base.Type {
		case protocol.TypeGameOver:
			return protocol.Reject(protocol.ErrGameOver, "game ended during %s", act.ID)
		case protocol.TypeActResult:
		default:
			continue
		}
		var res protocol.ActResultMsg
		if err := json.Unmarshal(msg, &res); err != nil {
			return fmt.Errorf("ACT_RESULT: %w", err)
		}
		if res.Ref != act.ID {
			continue
		}
		if err := c.setState(res.State); err != nil {
			return err
		}
		if !res.OK {
			return &protocol.RejectError{Code: res.Code, Message: res.Message}
		}
		return nil
	}
}
