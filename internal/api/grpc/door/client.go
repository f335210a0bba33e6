package door

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/garage-door/internal/config"
	domain "github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/service/controller"
)

// Client calls DoorService on a remote controller.
type Client struct {
	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the transport credentials when connecting.
	dialOptions []grpc.DialOption
	// actor is sent with every call when set.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions adds gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(options ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, options...)
	}
}

// WithActor sends actor with every call.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor.String()
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errInvalidTarget is returned before calling the server with a transient target.
	errInvalidTarget = errors.New("target must be opened or closed")
)

// Dial creates a client for the controller at address.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		client.dialOptions...,
	)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial door controller: %w", err)
	}

	client.conn = conn

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// SetTargetState asks the controller to move the door to target.
func (c *Client) SetTargetState(ctx context.Context, target domain.State) (controller.Snapshot, error) {
	if !domain.ValidTarget(target) {
		return controller.Snapshot{}, fmt.Errorf("%w: %s", errInvalidTarget, target)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response := new(structpb.Struct)

	err := c.conn.Invoke(callCtx, setTargetStateMethod, wrapperspb.String(target.String()), response)
	if err != nil {
		return controller.Snapshot{}, fmt.Errorf("set target state: %w", err)
	}

	return fromProtoSnapshot(response)
}

// GetCurrentState asks the controller to read the sensors and returns its snapshot.
func (c *Client) GetCurrentState(ctx context.Context) (controller.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response := new(structpb.Struct)

	if err := c.conn.Invoke(callCtx, getCurrentStateMethod, new(emptypb.Empty), response); err != nil {
		return controller.Snapshot{}, fmt.Errorf("get current state: %w", err)
	}

	return fromProtoSnapshot(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, actorMetadataKey, c.actor)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
