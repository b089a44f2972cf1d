package observerproto

import "catastrophe.ai/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Players filters action messages to these players; empty means all.
	Players []string `json:"players,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string             `json:"protocol_version"`
	GameID          string             `json:"game_id"`
	State           protocol.GameState `json:"state"`
}

// Server -> Client. One per authority call.
type ActionMsg struct {
	Type            string                `json:"type"`
	ProtocolVersion string                `json:"protocol_version"`
	Action          protocol.ActionRecord `json:"action"`
}

// Server -> Client. One per completed turn.
type TurnMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Player          string             `json:"player"`
	Turn            int                `json:"turn"`
	State           protocol.GameState `json:"state"`
}
