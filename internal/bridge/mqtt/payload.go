package mqtt

import (
	"encoding/json"
	"time"

	"github.com/oshokin/garage-door/internal/domain/door"
)

// StatePayload is published on the current and target topics.
type StatePayload struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	Code      int    `json:"code"`
}

// ObstructionPayload is published on the obstruction topic.
type ObstructionPayload struct {
	Timestamp  string `json:"timestamp"`
	Obstructed bool   `json:"obstructed"`
}

// FormatState creates the JSON payload for a door state.
func FormatState(state door.State, at time.Time) ([]byte, error) {
	return json.Marshal(StatePayload{
		Timestamp: at.UTC().Format(time.RFC3339),
		State:     state.String(),
		Code:      int(state),
	})
}

// FormatObstruction creates the JSON payload for the obstruction flag.
func FormatObstruction(obstructed bool, at time.Time) ([]byte, error) {
	return json.Marshal(ObstructionPayload{
		Timestamp:  at.UTC().Format(time.RFC3339),
		Obstructed: obstructed,
	})
}
