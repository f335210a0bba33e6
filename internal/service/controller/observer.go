package controller

import "github.com/oshokin/garage-door/internal/domain/door"

// Observer receives state changes of the controller.
//
// Calls are made while the controller lock is held, in the order the changes
// happened. Implementations must return quickly and must not call back into
// the controller on the same goroutine.
type Observer interface {
	// CurrentChanged reports a new current door state.
	CurrentChanged(state door.State)
	// TargetChanged reports a new target door state.
	TargetChanged(target door.State)
	// ObstructionChanged reports the obstruction flag being raised or cleared.
	ObstructionChanged(obstructed bool)
}

// Observers fans notifications out to every member.
type Observers []Observer

// CurrentChanged implements Observer.
func (o Observers) CurrentChanged(state door.State) {
	for _, observer := range o {
		observer.CurrentChanged(state)
	}
}

// TargetChanged implements Observer.
func (o Observers) TargetChanged(target door.State) {
	for _, observer := range o {
		observer.TargetChanged(target)
	}
}

// ObstructionChanged implements Observer.
func (o Observers) ObstructionChanged(obstructed bool) {
	for _, observer := range o {
		observer.ObstructionChanged(obstructed)
	}
}
