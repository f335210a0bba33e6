package controller

import (
	"context"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/logger"
)

// Toggler pulses the door relay.
type Toggler interface {
	Toggle(ctx context.Context) error
}

// Result describes how a command went.
type Result struct {
	// Attempts is the number of toggle calls made.
	Attempts int
	// Acknowledged is set when one of the calls succeeded.
	Acknowledged bool
}

// Issuer sends the toggle command with a bounded number of immediate retries.
type Issuer struct {
	// toggler performs a single toggle call.
	toggler Toggler
	// attempts is the retry budget per command.
	attempts int
}

// NewIssuer creates an issuer making at most attempts calls per command.
func NewIssuer(toggler Toggler, attempts int) *Issuer {
	if attempts <= 0 {
		attempts = config.DefaultCommandAttempts
	}

	return &Issuer{
		toggler:  toggler,
		attempts: attempts,
	}
}

// Issue toggles the relay, retrying failed calls until one succeeds or the
// budget is spent. It never fails: the relay is stateless and the watch
// session decides whether the command had an effect.
func (i *Issuer) Issue(ctx context.Context) Result {
	var result Result

	for attempt := 1; attempt <= i.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			logger.WarnKV(ctx, "Toggle aborted", "attempt", attempt, "error", err)
			break
		}

		result.Attempts = attempt

		err := i.toggler.Toggle(ctx)
		if err == nil {
			result.Acknowledged = true
			break
		}

		logger.ErrorKV(ctx, "Toggle attempt failed", "attempt", attempt, "attempts", i.attempts, "error", err)
	}

	return result
}
