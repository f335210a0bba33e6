package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/garage-door/internal/domain/door"
)

var (
	errTestTransport = errors.New("test transport failure")
	errTestStatus    = errors.New("test status 500")
)

// fakeNode implements Reader and Toggler for the controller tests.
type fakeNode struct {
	// mu protects the counters.
	mu sync.Mutex
	// readFn produces the next reading; nil returns both sensors inactive.
	readFn func() (door.Reading, error)
	// toggleErr is returned by every Toggle call.
	toggleErr error
	// toggleFn runs inside every Toggle call, e.g. to let time pass.
	toggleFn func()
	// reads counts Read calls.
	reads int
	// toggles counts Toggle calls.
	toggles int
}

// Read returns the reading produced by readFn.
func (f *fakeNode) Read(context.Context) (door.Reading, error) {
	f.mu.Lock()
	f.reads++
	fn := f.readFn
	f.mu.Unlock()

	if fn == nil {
		return door.Reading{}, nil
	}

	return fn()
}

// Toggle records the call, runs toggleFn and returns toggleErr.
func (f *fakeNode) Toggle(context.Context) error {
	f.mu.Lock()
	f.toggles++
	fn, err := f.toggleFn, f.toggleErr
	f.mu.Unlock()

	if fn != nil {
		fn()
	}

	return err
}

// readCount returns the number of Read calls.
func (f *fakeNode) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads
}

// toggleCount returns the number of Toggle calls.
func (f *fakeNode) toggleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.toggles
}

// recordingObserver keeps every notification as a short string.
type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

// CurrentChanged records the new current state.
func (r *recordingObserver) CurrentChanged(state door.State) {
	r.add(fmt.Sprintf("current:%s", state))
}

// TargetChanged records the new target state.
func (r *recordingObserver) TargetChanged(target door.State) {
	r.add(fmt.Sprintf("target:%s", target))
}

// ObstructionChanged records the obstruction flag.
func (r *recordingObserver) ObstructionChanged(obstructed bool) {
	r.add(fmt.Sprintf("obstruction:%t", obstructed))
}

// add appends an event.
func (r *recordingObserver) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// all returns a copy of the recorded events.
func (r *recordingObserver) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.events...)
}
