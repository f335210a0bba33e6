package door

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "garagedoor.v1.DoorService"

	// setTargetStateMethod is the full method name of SetTargetState.
	setTargetStateMethod = "/" + ServiceName + "/SetTargetState"
	// getCurrentStateMethod is the full method name of GetCurrentState.
	getCurrentStateMethod = "/" + ServiceName + "/GetCurrentState"
)

// DoorServiceServer is the server API of the door service.
type DoorServiceServer interface {
	// SetTargetState requests "opened" or "closed" and returns the snapshot.
	SetTargetState(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	// GetCurrentState reads the sensors and returns the snapshot.
	GetCurrentState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes DoorService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DoorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SetTargetState",
			Handler:    setTargetStateHandler,
		},
		{
			MethodName: "GetCurrentState",
			Handler:    getCurrentStateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "garagedoor/v1/door.proto",
}

// RegisterDoorServiceServer registers srv on the gRPC server.
func RegisterDoorServiceServer(registrar grpc.ServiceRegistrar, srv DoorServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// setTargetStateHandler decodes the request and dispatches it through interceptors.
func setTargetStateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DoorServiceServer).SetTargetState(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: setTargetStateMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DoorServiceServer).SetTargetState(ctx, req.(*wrapperspb.StringValue)) //nolint:forcetypeassert // Decoded above.
	}

	return interceptor(ctx, in, info, handler)
}

// getCurrentStateHandler decodes the request and dispatches it through interceptors.
func getCurrentStateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DoorServiceServer).GetCurrentState(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getCurrentStateMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DoorServiceServer).GetCurrentState(ctx, req.(*emptypb.Empty)) //nolint:forcetypeassert // Decoded above.
	}

	return interceptor(ctx, in, info, handler)
}
