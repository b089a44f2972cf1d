package protocol

// GameState is a full snapshot of the board. Every tile of the Width x Height
// grid exists; tiles carry no data beyond what units and structures place on them.
type GameState struct {
	Turn          int              `json:"turn"`
	CurrentPlayer string           `json:"current_player"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	Players       []PlayerState    `json:"players"`
	Jobs          []JobState       `json:"jobs"`
	Units         []UnitState      `json:"units"`
	Structures    []StructureState `json:"structures"`
}

type PlayerState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	CatID string `json:"cat_id,omitempty"`
}

type JobState struct {
	Title      string  `json:"title"`
	ActionCost float64 `json:"action_cost"`
	Moves      int     `json:"moves"`
}

type UnitState struct {
	ID     string  `json:"id"`
	Owner  string  `json:"owner,omitempty"`
	Job    string  `json:"job"`
	Energy float64 `json:"energy"`
	Moves  int     `json:"moves"`
	Acted  bool    `json:"acted"`
	Pos    *[2]int `json:"pos,omitempty"`
}

type StructureState struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Owner string `json:"owner,omitempty"`
	Pos   [2]int `json:"pos"`
}
