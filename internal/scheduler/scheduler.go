package scheduler

import "time"

// Task is a pending delayed call.
type Task interface {
	// Stop prevents the call from running. It reports whether the call was
	// still pending.
	Stop() bool
}

// Scheduler tells the time and runs functions later.
type Scheduler interface {
	Now() time.Time
	AfterFunc(delay time.Duration, fn func()) Task
}

// System is the Scheduler backed by the time package.
type System struct{}

// Now returns the wall clock time.
func (System) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on its own goroutine after delay.
func (System) AfterFunc(delay time.Duration, fn func()) Task {
	return time.AfterFunc(delay, fn)
}
