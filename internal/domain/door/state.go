package door

import (
	"errors"
	"fmt"
	"strings"
)

// State is the coarse position of the door.
// Values follow the HomeKit CurrentDoorState characteristic.
type State int

const (
	// Unknown is the initial state before anything was observed.
	Unknown State = -1
	// Opened is confirmed by the opened sensor.
	Opened State = 0
	// Closed is confirmed by the closed sensor.
	Closed State = 1
	// Opening is inferred while moving towards Opened.
	Opening State = 2
	// Closing is inferred while moving towards Closed.
	Closing State = 3
	// Stopped marks a door that did not reach any sensor in time.
	Stopped State = 4
)

// ErrUnknownState is returned when a state name cannot be parsed.
var ErrUnknownState = errors.New("unknown door state")

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Opened:
		return "Opened"
	case Closed:
		return "Closed"
	case Opening:
		return "Opening"
	case Closing:
		return "Closing"
	case Stopped:
		return "Stopped"
	case Unknown:
		return "Unknown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the state is confirmed by a sensor.
func (s State) Terminal() bool {
	return s == Opened || s == Closed
}

// ValidTarget reports whether s may be requested as a target.
func ValidTarget(s State) bool {
	return s.Terminal()
}

// ParseState converts a name to a state. Matching ignores case and accepts
// "open" and "close" for the two terminal states.
func ParseState(name string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "opened", "open":
		return Opened, nil
	case "closed", "close":
		return Closed, nil
	case "opening":
		return Opening, nil
	case "closing":
		return Closing, nil
	case "stopped":
		return Stopped, nil
	case "unknown":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
}

// Reading is one sample of the two proximity sensors of the node.
type Reading struct {
	// OpenedActive is set when the door touches the opened sensor.
	OpenedActive bool
	// ClosedActive is set when the door touches the closed sensor.
	ClosedActive bool
}
