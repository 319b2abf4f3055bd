// Package rpc serves fingerprinting over gRPC as phash.v1.Fingerprinter.
// Messages are protobuf well-known types, so no generated code is needed:
//
//	service Fingerprinter {
//	  rpc Hash(google.protobuf.BytesValue) returns (google.protobuf.Struct);
//	  rpc Distance(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName    = "phash.v1.Fingerprinter"
	HashMethod     = "/" + ServiceName + "/Hash"
	DistanceMethod = "/" + ServiceName + "/Distance"
)

// FingerprinterServer is the server API for phash.v1.Fingerprinter.
type FingerprinterServer interface {
	Hash(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	Distance(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes phash.v1.Fingerprinter for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FingerprinterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Hash", Handler: hashHandler},
		{MethodName: "Distance", Handler: distanceHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "phash/v1/fingerprinter.proto",
}

func RegisterFingerprinterServer(s grpc.ServiceRegistrar, srv FingerprinterServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func hashHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FingerprinterServer).Hash(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HashMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FingerprinterServer).Hash(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func distanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FingerprinterServer).Distance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DistanceMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FingerprinterServer).Distance(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// FingerprinterClient is the client API for phash.v1.Fingerprinter.
type FingerprinterClient interface {
	Hash(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Distance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type fingerprinterClient struct {
	cc grpc.ClientConnInterface
}

func NewFingerprinterClient(cc grpc.ClientConnInterface) FingerprinterClient {
	return &fingerprinterClient{cc: cc}
}

func (c *fingerprinterClient) Hash(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, HashMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fingerprinterClient) Distance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DistanceMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
