package protocol

import "github.com/google/uuid"

// NewRequestID returns a unique ACT id such as "A_MOVE_3f2c...".
func NewRequestID(action string) string {
	return "A_" + action + "_" + uuid.NewString()
}
