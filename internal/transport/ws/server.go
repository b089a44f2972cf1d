package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/referee"
)

// LocalPlayer plays one whole turn in-process against the referee.
type LocalPlayer func(ctx context.Context) error

type Server struct {
	ref    *referee.Referee
	gameID string
	log    *log.Logger

	upgrader websocket.Upgrader

	// sendWait bounds how long a reply or RUN_TURN waits on a full queue.
	sendWait time.Duration

	mu       sync.Mutex
	order    []string
	seats    map[string]chan []byte
	local    map[string]LocalPlayer
	overSent bool

	// OnTurn, when set, sees every completed turn.
	OnTurn func(player string, turn int)
}

func NewServer(ref *referee.Referee, gameID string, logger *log.Logger) *Server {
	s := &Server{
		ref:    ref,
		gameID: gameID,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sendWait: 2 * time.Second,
		seats:    map[string]chan []byte{},
		local:    map[string]LocalPlayer{},
	}
	for _, p := range ref.Snapshot().Players {
		s.order = append(s.order, p.ID)
	}
	return s
}

// SetLocal seats an in-process player. Call before serving.
func (s *Server) SetLocal(playerID string, run LocalPlayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[playerID] = run
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		s.mu.Lock()
		s.advanceLocked()
		s.mu.Unlock()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeAct:
				s.handleAct(playerID, out, msg)
			case protocol.TypeEndTurn:
				s.handleEndTurn(playerID)
			}
		}

		// Cleanup: free the seat for a reconnect.
		s.mu.Lock()
		if s.seats[playerID] == out {
			delete(s.seats, playerID)
		}
		s.mu.Unlock()
		s.logf("player %s left", playerID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", nil
	}
	if hello.PlayerName == "" {
		hello.PlayerName = "player"
	}

	out = make(chan []byte, 32)
	s.mu.Lock()
	for _, id := range s.order {
		if _, local := s.local[id]; local {
			continue
		}
		if _, taken := s.seats[id]; !taken {
			playerID = id
			s.seats[id] = out
			break
		}
	}
	s.mu.Unlock()
	if playerID == "" {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrGameFull)
		return "", nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		GameID:          s.gameID,
		PlayerID:        playerID,
		State:           s.ref.Snapshot(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.mu.Lock()
		delete(s.seats, playerID)
		s.mu.Unlock()
		return "", nil
	}
	s.logf("player %s joined as %q", playerID, hello.PlayerName)
	return playerID, out
}

func (s *Server) handleAct(playerID string, out chan []byte, msg []byte) {
	var act protocol.ActMsg
	res := protocol.ActResultMsg{Type: protocol.TypeActResult, ProtocolVersion: protocol.Version}
	var err error
	switch {
	case json.Unmarshal(msg, &act) != nil:
		err = protocol.Reject(protocol.ErrProtoBadRequest, "bad ACT")
	case act.ProtocolVersion != protocol.Version:
		err = protocol.Reject(protocol.ErrProtoBadRequest, "bad protocol_version")
	default:
		err = s.ref.Apply(playerID, act)
	}
	res.Ref = act.ID
	res.OK = err == nil
	var rej *protocol.RejectError
	if errors.As(err, &rej) {
		res.Code, res.Message = rej.Code, rej.Message
	}
	res.State = s.ref.Snapshot()
	s.send(out, res, s.sendWait)
}

func (s *Server) handleEndTurn(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := s.ref.Snapshot().Turn
	if err := s.ref.EndTurn(playerID); err != nil {
		s.logf("END_TURN from %s: %v", playerID, err)
		return
	}
	s.turnEnded(playerID, turn)
	s.advanceLocked()
}

func (s *Server) turnEnded(playerID string, turn int) {
	if s.OnTurn != nil {
		s.OnTurn(playerID, turn)
	}
}

// advanceLocked hands the turn to whoever holds it: local players play and end
// their turn inline, remote players get RUN_TURN. Nothing starts until every
// remote seat is filled.
func (s *Server) advanceLocked() {
	for {
		if over, winner, reason := s.ref.Over(); over {
			if !s.overSent {
				s.overSent = true
				s.broadcastLocked(protocol.GameOverMsg{
					Type:            protocol.TypeGameOver,
					ProtocolVersion: protocol.Version,
					Turn:            s.ref.Snapshot().Turn,
					Winner:          winner,
					Reason:          reason,
				})
			}
			return
		}
		if !s.seatedLocked() {
			return
		}

		cur := s.ref.CurrentPlayer()
		if run, ok := s.local[cur]; ok {
			turn := s.ref.Snapshot().Turn
			if err := run(context.Background()); err != nil {
				s.logf("local player %s: %v", cur, err)
			}
			if err := s.ref.EndTurn(cur); err != nil {
				s.logf("local player %s end turn: %v", cur, err)
				return
			}
			s.turnEnded(cur, turn)
			continue
		}

		st := s.ref.Snapshot()
		s.send(s.seats[cur], protocol.RunTurnMsg{
			Type:            protocol.TypeRunTurn,
			ProtocolVersion: protocol.Version,
			Turn:            st.Turn,
			State:           st,
		}, s.sendWait)
		return
	}
}

func (s *Server) seatedLocked() bool {
	for _, id := range s.order {
		if _, local := s.local[id]; local {
			continue
		}
		if _, ok := s.seats[id]; !ok {
			return false
		}
	}
	return true
}

func (s *Server) broadcastLocked(v any) {
	for _, id := range s.order {
		if out, ok := s.seats[id]; ok {
			s.send(out, v, 0)
		}
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// send queues v for the writer goroutine, waiting up to wait for room. A
// zero wait never blocks. Dropped messages are logged.
func (s *Server) send(out chan []byte, v any, wait time.Duration) bool {
	if out == nil {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logf("send: marshal %T: %v", v, err)
		return false
	}
	select {
	case out <- b:
		return true
	default:
	}
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case out <- b:
			return true
		case <-timer.C:
		}
	}
	s.logf("send: queue full, dropped %T", v)
	return false
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
