package controller

import (
	"time"

	"github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/scheduler"
)

// session is one bounded polling campaign started by SetTarget.
type session struct {
	// generation identifies the session.
	generation uint64
	// startedAt is when the session was installed.
	startedAt time.Time
	// budget is the maximum duration of the session.
	budget time.Duration
	// interval is the delay between two ticks.
	interval time.Duration
	// task is the pending tick.
	task scheduler.Task
}

// startSessionLocked replaces the active session with a fresh one and clears
// the obstruction flag. The first tick fires after one interval.
func (c *Controller) startSessionLocked() {
	c.stopSessionLocked()
	c.setObstructedLocked(false)

	c.generation++

	s := &session{
		generation: c.generation,
		startedAt:  c.clock.Now(),
		budget:     c.budget,
		interval:   c.interval,
	}

	c.session = s
	c.scheduleLocked(s)

	logger.DebugKV(c.ctx, "Watch session started",
		"generation", s.generation, "interval", s.interval, "budget", s.budget, "target", c.target)
}

// stopSessionLocked cancels the pending tick of the active session.
func (c *Controller) stopSessionLocked() {
	if c.session == nil {
		return
	}

	if c.session.task != nil {
		c.session.task.Stop()
	}

	c.session = nil
}

// scheduleLocked arms the next tick of s.
func (c *Controller) scheduleLocked(s *session) {
	generation := s.generation
	s.task = c.clock.AfterFunc(s.interval, func() {
		c.tick(generation)
	})
}

// activeLocked returns the session with the given generation if it is still installed.
func (c *Controller) activeLocked(generation uint64) *session {
	if c.closed || c.session == nil || c.session.generation != generation {
		return nil
	}

	return c.session
}

// tick runs one step of the watch session identified by generation.
//
// The budget is checked against the state known before this tick. Unless
// refetchOnTimeout is set an expired session classifies the door without
// reading the sensors again. The sensor read runs without the lock; its
// result is dropped when the session was replaced meanwhile.
func (c *Controller) tick(generation uint64) {
	ctx := c.ctx

	c.mu.Lock()
	s := c.activeLocked(generation)
	if s == nil {
		c.mu.Unlock()
		return
	}

	expired := c.clock.Now().Sub(s.startedAt) > s.budget
	c.mu.Unlock()

	var (
		fetch   = !expired || c.refetchOnTimeout
		reading door.Reading
		err     error
	)

	if fetch {
		reading, err = c.reader.Read(ctx)
		if err != nil {
			logger.DebugKV(ctx, "Timer state update failed", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s = c.activeLocked(generation); s == nil {
		logger.DebugKV(ctx, "Dropping tick of a replaced watch session", "generation", generation)
		return
	}

	if fetch && err == nil {
		c.applyLocked(ctx, reading)
	}

	if expired {
		c.expireLocked(s)
		return
	}

	if c.current == c.target {
		logger.DebugKV(ctx, "Target state reached", "target", c.target)
		c.session = nil

		return
	}

	logger.DebugKV(ctx, "Target state not reached yet", "target", c.target, "current", c.current)
	c.scheduleLocked(s)
}

// expireLocked ends a session that ran out of time. A door that is not at a
// sensor is declared obstructed and Stopped; a door at a sensor is left as is.
func (c *Controller) expireLocked(s *session) {
	ctx := c.ctx
	c.session = nil

	if !c.current.Terminal() {
		c.setObstructedLocked(true)

		if c.current != door.Stopped {
			logger.InfoKV(ctx, "Door state changed", "from", c.current, "to", door.Stopped)
			c.current = door.Stopped
			c.observer.CurrentChanged(door.Stopped)
		}

		logger.ErrorKV(ctx, "Obstruction detected, door reached neither the target nor the opposite state in time",
			"target", c.target, "budget", s.budget)

		return
	}

	if c.current == c.target {
		logger.DebugKV(ctx, "Target state reached at expiry", "target", c.target)
		return
	}

	logger.DebugKV(ctx, "Opposite state reached, aborting", "target", c.target, "current", c.current)
}
