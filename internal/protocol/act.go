package protocol

// Action kinds carried by ACT.
const (
	ActionMove      = "MOVE"
	ActionRest      = "REST"
	ActionConvert   = "CONVERT"
	ActionChangeJob = "CHANGE_JOB"
)

// ACT (client -> server): one authority round trip.
type ActMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id"`
	Action          string  `json:"action"`
	UnitID          string  `json:"unit_id"`
	Target          *[2]int `json:"target,omitempty"`
	Job             string  `json:"job,omitempty"`
}

// ACT_RESULT (server -> client). State is the game after the action was
// applied (or unchanged when rejected).
type ActResultMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Ref             string    `json:"ref"`
	OK              bool      `json:"ok"`
	Code            string    `json:"code,omitempty"`
	Message         string    `json:"message,omitempty"`
	State           GameState `json:"state"`
}
