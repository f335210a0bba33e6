// Package scheduler provides the clock and delayed tasks used by the door
// watcher.
//
// System is backed by the time package. Manual is a deterministic clock for
// tests: tasks run synchronously inside Advance, in due order.
package scheduler
