package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/scheduler"
)

// Reader fetches one sensor reading from the node.
type Reader interface {
	Read(ctx context.Context) (door.Reading, error)
}

var (
	// ErrInvalidTarget is returned when the target is neither Opened nor Closed.
	ErrInvalidTarget = errors.New("invalid target door state")
	// ErrCommunicationFailure is returned when an immediate read of the node fails.
	ErrCommunicationFailure = errors.New("door node communication failure")
	// ErrClosed is returned by SetTarget after Close.
	ErrClosed = errors.New("controller is closed")

	// errReaderRequired is returned when no sensor reader is provided.
	errReaderRequired = errors.New("sensor reader must be provided")
	// errIssuerRequired is returned when no command issuer is provided.
	errIssuerRequired = errors.New("command issuer must be provided")
	// errInvalidTiming is returned when the budget does not exceed the interval.
	errInvalidTiming = errors.New("watch budget must be greater than the refresh interval")
)

// Snapshot is a copy of the controller state.
type Snapshot struct {
	// Current is the last inferred door state.
	Current door.State
	// Target is the last requested door state.
	Target door.State
	// Obstructed is set after a watch session ran out of time mid-travel.
	Obstructed bool
	// Watching is set while a watch session is active.
	Watching bool
	// UpdatedAt is when the sensors were last applied, zero if never.
	UpdatedAt time.Time
}

// Controller owns the door state and the active watch session.
type Controller struct {
	// ctx carries the logger of timer driven ticks and is cancelled by Close.
	ctx context.Context //nolint:containedctx // Ticks outlive the request that started them.
	// cancel cancels ctx.
	cancel context.CancelFunc
	// reader fetches sensor readings.
	reader Reader
	// issuer toggles the relay.
	issuer *Issuer
	// clock schedules ticks.
	clock scheduler.Scheduler
	// interval is the delay between two ticks.
	interval time.Duration
	// budget is the maximum duration of a watch session.
	budget time.Duration
	// refetchOnTimeout reads the sensors once more when the budget expires.
	refetchOnTimeout bool

	// mu serializes every access to the fields below.
	mu sync.Mutex
	// observer receives state changes.
	observer Observers
	// current is the last inferred door state.
	current door.State
	// target is the last requested door state.
	target door.State
	// obstructed is raised when a session expires mid-travel.
	obstructed bool
	// updatedAt is when a reading was last applied.
	updatedAt time.Time
	// session is the active watch session, nil when idle.
	session *session
	// generation numbers sessions, a tick of an older one is ignored.
	generation uint64
	// closed is set by Close.
	closed bool
}

// Option configures the controller.
type Option func(*Controller)

// WithScheduler replaces the system clock.
func WithScheduler(clock scheduler.Scheduler) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithObserver registers an observer at construction.
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		if observer != nil {
			c.observer = append(c.observer, observer)
		}
	}
}

// WithTiming sets the refresh interval and the watch budget.
func WithTiming(interval, budget time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.interval = interval
		}

		if budget > 0 {
			c.budget = budget
		}
	}
}

// WithRefetchOnTimeout makes an expiring session read the sensors once more
// before deciding whether the door is obstructed.
func WithRefetchOnTimeout(enabled bool) Option {
	return func(c *Controller) {
		c.refetchOnTimeout = enabled
	}
}

// New creates an idle controller. The context is used for logging of ticks.
func New(ctx context.Context, reader Reader, issuer *Issuer, opts ...Option) (*Controller, error) {
	if reader == nil {
		return nil, errReaderRequired
	}

	if issuer == nil {
		return nil, errIssuerRequired
	}

	c := &Controller{
		reader:   reader,
		issuer:   issuer,
		clock:    scheduler.System{},
		interval: config.DefaultRefreshInterval,
		budget:   config.DefaultMaximumDuration,
		current:  door.Unknown,
		target:   door.Unknown,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.budget <= c.interval {
		return nil, fmt.Errorf("%w: %s <= %s", errInvalidTiming, c.budget, c.interval)
	}

	c.ctx, c.cancel = context.WithCancel(logger.WithName(ctx, "watcher"))

	return c, nil
}

// AddObserver registers an observer after construction.
func (c *Controller) AddObserver(observer Observer) {
	if observer == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.observer = append(c.observer, observer)
}

// SetTarget records the target, cancels the active session and clears the
// obstruction in one step, then toggles the relay and starts a new watch
// session. Toggle failures are only logged: the session starts regardless.
func (c *Controller) SetTarget(ctx context.Context, target door.State) error {
	if !door.ValidTarget(target) {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.target != target {
		c.target = target
		c.observer.TargetChanged(target)
	}

	// The old session must not tick against the new target while the
	// relay is being toggled.
	c.stopSessionLocked()
	c.setObstructedLocked(false)
	c.mu.Unlock()

	logger.InfoKV(ctx, "Setting target door state", "target", target)

	result := c.issuer.Issue(ctx)
	if !result.Acknowledged {
		logger.ErrorKV(ctx, "Toggle not acknowledged, watching anyway", "target", target, "attempts", result.Attempts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.startSessionLocked()

	return nil
}

// Current reads the sensors once, outside the watch schedule, and returns the
// resulting state. The active session and its timer are left untouched.
func (c *Controller) Current(ctx context.Context) (door.State, error) {
	reading, err := c.reader.Read(ctx)
	if err != nil {
		return door.Unknown, fmt.Errorf("%w: %w", ErrCommunicationFailure, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.applyLocked(ctx, reading), nil
}

// Snapshot returns the in-memory state without touching the node.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Current:    c.current,
		Target:     c.target,
		Obstructed: c.obstructed,
		Watching:   c.session != nil,
		UpdatedAt:  c.updatedAt,
	}
}

// Close stops the active session. Later ticks and commands are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.stopSessionLocked()
	c.cancel()
}

// applyLocked decodes a reading into the current state. A change to a
// terminal state clears the obstruction flag.
func (c *Controller) applyLocked(ctx context.Context, reading door.Reading) door.State {
	state := door.Decode(reading, c.target, c.obstructed)
	c.updatedAt = c.clock.Now()

	if state == c.current {
		return state
	}

	logger.InfoKV(ctx, "Door state changed", "from", c.current, "to", state)

	if state.Terminal() && c.obstructed {
		c.setObstructedLocked(false)
		logger.Debug(ctx, "Obstruction cleared")
	}

	c.current = state
	c.observer.CurrentChanged(state)

	return state
}

// setObstructedLocked updates the obstruction flag and notifies on change.
func (c *Controller) setObstructedLocked(obstructed bool) {
	if c.obstructed == obstructed {
		return
	}

	c.obstructed = obstructed
	c.observer.ObstructionChanged(obstructed)
}
