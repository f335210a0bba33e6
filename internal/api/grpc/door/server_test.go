package door

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/service/controller"
)

var errTestInternal = errors.New("test internal failure")

// fakeService implements the Service interface for unit testing the transport.
type fakeService struct {
	// mu protects snapshot.
	mu sync.Mutex
	// setErr is returned by SetTarget.
	setErr error
	// currentErr is returned by Current.
	currentErr error
	// snapshot is the state reported by Snapshot.
	snapshot controller.Snapshot
	// actor is the caller seen by the last SetTarget.
	actor string
}

// SetTarget records the target or fails with setErr.
func (f *fakeService) SetTarget(ctx context.Context, target domain.State) error {
	if f.setErr != nil {
		return f.setErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.actor = actorFromContext(ctx)
	f.snapshot.Target = target
	f.snapshot.Watching = true

	return nil
}

// Current returns the stored state or currentErr.
func (f *fakeService) Current(context.Context) (domain.State, error) {
	if f.currentErr != nil {
		return domain.Unknown, f.currentErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshot.Current = domain.Closing
	f.snapshot.UpdatedAt = time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

	return f.snapshot.Current, nil
}

// Snapshot returns the stored snapshot.
func (f *fakeService) Snapshot() controller.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshot
}

// TestServer_SetTargetState_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_SetTargetState_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))

	_, err := s.SetTargetState(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	for _, value := range []string{"", "ajar", "opening", "stopped"} {
		_, err = s.SetTargetState(context.Background(), wrapperspb.String(value))
		require.Equal(t, codes.InvalidArgument, status.Code(err), value)
	}
}

// TestServer_ErrorMapping maps controller errors to status codes.
func TestServer_ErrorMapping(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{currentErr: controller.ErrCommunicationFailure})

	_, err := s.GetCurrentState(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Unavailable, status.Code(err))

	s = NewServer(&fakeService{setErr: controller.ErrClosed})

	_, err = s.SetTargetState(context.Background(), wrapperspb.String("open"))
	require.Equal(t, codes.Unavailable, status.Code(err))

	s = NewServer(&fakeService{setErr: errTestInternal})

	_, err = s.SetTargetState(context.Background(), wrapperspb.String("open"))
	require.Equal(t, codes.Internal, status.Code(err))

	require.Equal(t, codes.InvalidArgument, status.Code(toStatus(controller.ErrInvalidTarget)))
}

// TestSnapshotConversion keeps every field across the Struct encoding.
func TestSnapshotConversion(t *testing.T) {
	t.Parallel()

	want := controller.Snapshot{
		Current:    domain.Stopped,
		Target:     domain.Closed,
		Obstructed: true,
		Watching:   false,
		UpdatedAt:  time.Date(2026, 10, 19, 18, 30, 15, 500, time.UTC),
	}

	message, err := toProtoSnapshot(want)
	require.NoError(t, err)

	got, err := fromProtoSnapshot(message)
	require.NoError(t, err)
	require.Equal(t, want, got)

	// A never updated snapshot keeps a zero time.
	message, err = toProtoSnapshot(controller.Snapshot{Current: domain.Unknown, Target: domain.Unknown})
	require.NoError(t, err)

	got, err = fromProtoSnapshot(message)
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.IsZero())
	require.Equal(t, domain.Unknown, got.Current)
}

// startBufconn serves the fake service over an in-memory listener and returns a connected client.
func startBufconn(t *testing.T, service Service) *Client {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterDoorServiceServer(server, NewServer(service))

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(server.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}

	client, err := Dial(
		context.Background(),
		"passthrough:///bufnet",
		WithCallTimeout(3*time.Second),
		WithDialOptions(grpc.WithContextDialer(dialer)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// TestClient_Roundtrip exercises both RPCs through a real gRPC server.
func TestClient_Roundtrip(t *testing.T) {
	t.Parallel()

	client := startBufconn(t, new(fakeService))

	snapshot, err := client.SetTargetState(context.Background(), domain.Closed)
	require.NoError(t, err)
	require.Equal(t, domain.Closed, snapshot.Target)
	require.True(t, snapshot.Watching)

	snapshot, err = client.GetCurrentState(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.Closing, snapshot.Current)
	require.False(t, snapshot.UpdatedAt.IsZero())
}

// TestClient_Errors validates arguments locally and surfaces status codes.
func TestClient_Errors(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), "")
	require.Error(t, err)

	client := startBufconn(t, &fakeService{currentErr: controller.ErrCommunicationFailure})

	_, err = client.SetTargetState(context.Background(), domain.Opening)
	require.ErrorIs(t, err, errInvalidTarget)

	_, err = client.GetCurrentState(context.Background())
	require.Equal(t, codes.Unavailable, status.Code(err))
}
