package protocol

// ActionRecord is one authority call as written to action logs and the index.
type ActionRecord struct {
	Turn    int     `json:"turn"`
	Player  string  `json:"player"`
	UnitID  string  `json:"unit_id"`
	Action  string  `json:"action"`
	Target  *[2]int `json:"target,omitempty"`
	Job     string  `json:"job,omitempty"`
	OK      bool    `json:"ok"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
}

// TurnRecord summarizes the board when a player ends a turn.
type TurnRecord struct {
	Turn    int            `json:"turn"`
	Player  string         `json:"player"`
	Units   map[string]int `json:"units"` // by owner id
	Neutral int            `json:"neutral"`
}
