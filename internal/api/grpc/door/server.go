package door

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
	"github.com/oshokin/garage-door/internal/service/controller"
)

// Service abstracts the controller operations the transport depends on.
type Service interface {
	SetTarget(ctx context.Context, target domain.State) error
	Current(ctx context.Context) (domain.State, error)
	Snapshot() controller.Snapshot
}

// Server implements DoorServiceServer on top of a Service.
type Server struct {
	// service provides the door operations.
	service Service
}

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// SetTargetState requests a new target and returns the resulting snapshot.
func (s *Server) SetTargetState(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	target, err := domain.ParseState(req.GetValue())
	if err != nil || !domain.ValidTarget(target) {
		return nil, status.Errorf(codes.InvalidArgument, "target must be opened or closed, got %q", req.GetValue())
	}

	// The command is issued in full even if the caller gives up waiting.
	ctx = logger.WithKV(context.WithoutCancel(ctx), "rpc", "SetTargetState", "actor", actorFromContext(ctx))

	logger.InfoKV(ctx, "Target requested", "target", target)

	if err = s.service.SetTarget(ctx, target); err != nil {
		return nil, toStatus(err)
	}

	return s.snapshot()
}

// GetCurrentState reads the sensors once and returns the resulting snapshot.
func (s *Server) GetCurrentState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx = logger.WithKV(ctx, "rpc", "GetCurrentState", "actor", actorFromContext(ctx))

	if _, err := s.service.Current(ctx); err != nil {
		logger.WarnKV(ctx, "Current door state unavailable", "error", err)

		return nil, toStatus(err)
	}

	return s.snapshot()
}

// snapshot encodes the current controller snapshot.
func (s *Server) snapshot() (*structpb.Struct, error) {
	result, err := toProtoSnapshot(s.service.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode snapshot")
	}

	return result, nil
}

// toStatus maps controller errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, controller.ErrInvalidTarget):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, controller.ErrCommunicationFailure):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, controller.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
