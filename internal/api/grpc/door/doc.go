// Package door implements the gRPC transport of the garage door controller.
//
// The service is described by hand with grpc.ServiceDesc and exchanges
// protobuf well-known types only, so no generated code is needed: the target
// travels as a StringValue and the controller snapshot as a Struct.
package door
