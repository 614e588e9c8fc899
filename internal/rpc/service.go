// Package rpc exposes the scoring engine as prism.scoring.v1.ScoringService.
// Messages are google.protobuf.Struct so no generated stubs are needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "prism.scoring.v1.ScoringService"

const (
	methodScore      = "/" + ServiceName + "/Score"
	methodGetProfile = "/" + ServiceName + "/GetProfile"
)

// #region server-api
// ScoringServer is the server API for ScoringService.
type ScoringServer interface {
	// Score scores {"session_id"} and returns {"decision", "profile", "warnings"}.
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetProfile returns {"profile", "stale"} for {"session_id"}.
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterScoringServer registers srv on s.
func RegisterScoringServer(s grpc.ServiceRegistrar, srv ScoringServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
		{MethodName: "GetProfile", Handler: getProfileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "prism/scoring/v1/scoring.proto",
}

func scoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodScore}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).Score(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getProfileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).GetProfile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetProfile}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).GetProfile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion server-api

// #region client-api
// ScoringClient is the client API for ScoringService.
type ScoringClient interface {
	Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type scoringClient struct {
	cc grpc.ClientConnInterface
}

// NewScoringClient wraps a connection.
func NewScoringClient(cc grpc.ClientConnInterface) ScoringClient {
	return &scoringClient{cc: cc}
}

func (c *scoringClient) Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodScore, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *scoringClient) GetProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetProfile, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-api
