package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	api "github.com/oshokin/garage-door/internal/api/grpc/door"
	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/service/controller"
)

// Action selects what the command asks the server.
type Action string

const (
	// ActionOpen requests an opened door.
	ActionOpen Action = "open"
	// ActionClose requests a closed door.
	ActionClose Action = "close"
	// ActionStatus reads the sensors without moving the door.
	ActionStatus Action = "status"
)

// ErrUnknownAction is returned for an action other than open, close or status.
var ErrUnknownAction = errors.New("unknown action")

// Options configures a single client command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Action is the request sent to the server.
	Action Action
}

// Run performs the action against the door server and logs the snapshot.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "garage-door-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	dialOptions := []api.Option{api.WithCallTimeout(callTimeout(cfg))}

	// Identify current user and hostname for the server's audit log.
	if actor, err := api.DetectActor(); err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	} else {
		dialOptions = append(dialOptions, api.WithActor(actor))
	}

	client, err := api.Dial(ctx, serverAddress, dialOptions...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	snapshot, err := perform(ctx, client, opts.Action)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Door %s", formatSnapshot(snapshot))

	return nil
}

// perform sends the request matching action.
func perform(ctx context.Context, client *api.Client, action Action) (controller.Snapshot, error) {
	switch action {
	case ActionOpen:
		return client.SetTargetState(ctx, door.Opened)
	case ActionClose:
		return client.SetTargetState(ctx, door.Closed)
	case ActionStatus:
		return client.GetCurrentState(ctx)
	default:
		return controller.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// callTimeout leaves room for every relay attempt of the server plus the
// immediate read.
func callTimeout(cfg *config.Config) time.Duration {
	return cfg.Timeout * time.Duration(cfg.Door.CommandAttempts+1)
}

// formatSnapshot converts a snapshot to a readable log message.
func formatSnapshot(snapshot controller.Snapshot) string {
	// Extract timestamp with fallback for missing data.
	updatedAt := "<never>"
	if !snapshot.UpdatedAt.IsZero() {
		updatedAt = snapshot.UpdatedAt.Format(time.RFC3339)
	}

	result := fmt.Sprintf("%s, target %s (read at %s)", snapshot.Current, snapshot.Target, updatedAt)

	if snapshot.Watching {
		result += ", moving"
	}

	if snapshot.Obstructed {
		result += ", obstructed"
	}

	return result
}
