package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	GameID          string    `json:"game_id"`
	PlayerID        string    `json:"player_id"`
	State           GameState `json:"state"`
}

// RUN_TURN (server -> client): it is now the receiving player's turn.
type RunTurnMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Turn            int       `json:"turn"`
	State           GameState `json:"state"`
}

// END_TURN (client -> server)
type EndTurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            int    `json:"turn"`
}

// GAME_OVER (server -> client)
type GameOverMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            int    `json:"turn"`
	Winner          string `json:"winner,omitempty"`
	Reason          string `json:"reason"`
}
