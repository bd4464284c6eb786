package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the inference sidecar. Messages are
// google.protobuf.Struct so the sidecar needs no shared .proto beyond the
// well-known types.
const (
	ServiceName   = "intake.v1.Inference"
	ExtractMethod = "/intake.v1.Inference/Extract"
	SearchMethod  = "/intake.v1.Inference/Search"
)

// #region client-iface
// InferenceServiceClient is the client API of the inference sidecar.
type InferenceServiceClient interface {
	Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type inferenceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewInferenceServiceClient binds the sidecar API to a connection.
func NewInferenceServiceClient(cc grpc.ClientConnInterface) InferenceServiceClient {
	return &inferenceServiceClient{cc: cc}
}

func (c *inferenceServiceClient) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inferenceServiceClient) Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SearchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
// #endregion client-iface

// #region server-iface
// InferenceServiceServer is implemented by sidecars and by test fakes.
type InferenceServiceServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterInferenceServiceServer registers srv on s.
func RegisterInferenceServiceServer(s grpc.ServiceRegistrar, srv InferenceServiceServer) {
	s.RegisterService(&inferenceServiceDesc, srv)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServiceServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServiceServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func searchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServiceServer).Search(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SearchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServiceServer).Search(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var inferenceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InferenceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "Search", Handler: searchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "intake/v1/inference.proto",
}
// #endregion server-iface
