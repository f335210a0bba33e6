package door

// Decode infers the door state from a sensor reading.
//
// A terminal sensor wins over everything, the opened sensor first. Without
// one, a flagged obstruction keeps the door Stopped, otherwise the direction
// is guessed from the target.
func Decode(reading Reading, target State, obstructed bool) State {
	switch {
	case reading.OpenedActive:
		return Opened
	case reading.ClosedActive:
		return Closed
	case obstructed:
		return Stopped
	case target == Opened:
		return Opening
	default:
		return Closing
	}
}
