package cluster

// rpc.go hand-writes what protoc-gen-go-grpc would otherwise generate from a
// .proto file: a grpc.ServiceDesc plus client/server stubs. Messages are
// plain JSON-tagged structs (types.go) carried over a JSON encoding.Codec
// (codec.go) instead of protoc-generated types, since this retrieval pack
// does not include generated .pb.go output and hand-faking a
// protoreflect.ProtoMessage well enough to pass for real generated code
// would be unverifiable fabrication. google.golang.org/grpc itself stays
// wired for the transport it actually provides here: unary and
// server-streaming RPCs between the engine and a monitor process.

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName      = "bricks.cluster.Introspection"
	methodListBlocks = "/" + serviceName + "/ListBlocks"
	methodListEdges  = "/" + serviceName + "/ListEdges"
	methodListRoutes = "/" + serviceName + "/ListRoutes"
	methodWatchEdges = "/" + serviceName + "/WatchEdges"
)

// jsonCallOption forces every client call below onto the "json" content
// subtype registered in codec.go, instead of grpc-go's default "proto".
var jsonCallOption = grpc.CallContentSubtype(jsonCodecName)

// IntrospectionServer is the service interface ControlPlane implements.
type IntrospectionServer interface {
	ListBlocks(context.Context, *ListBlocksRequest) (*ListBlocksResponse, error)
	ListEdges(context.Context, *ListEdgesRequest) (*ListEdgesResponse, error)
	ListRoutes(context.Context, *ListRoutesRequest) (*ListRoutesResponse, error)
	WatchEdges(*WatchEdgesRequest, Introspection_WatchEdgesServer) error
}

// Introspection_WatchEdgesServer is the server-side handle for a WatchEdges
// stream.
type Introspection_WatchEdgesServer interface {
	Send(*ListEdgesResponse) error
	grpc.ServerStream
}

type introspectionWatchEdgesServer struct {
	grpc.ServerStream
}

func (x *introspectionWatchEdgesServer) Send(m *ListEdgesResponse) error {
	return x.ServerStream.SendMsg(m)
}

func _Introspection_ListBlocks_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListBlocksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).ListBlocks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListBlocks}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IntrospectionServer).ListBlocks(ctx, req.(*ListBlocksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Introspection_ListEdges_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListEdgesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).ListEdges(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListEdges}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IntrospectionServer).ListEdges(ctx, req.(*ListEdgesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Introspection_ListRoutes_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRoutesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).ListRoutes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListRoutes}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IntrospectionServer).ListRoutes(ctx, req.(*ListRoutesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Introspection_WatchEdges_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchEdgesRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(IntrospectionServer).WatchEdges(m, &introspectionWatchEdgesServer{stream})
}

var introspectionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*IntrospectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListBlocks", Handler: _Introspection_ListBlocks_Handler},
		{MethodName: "ListEdges", Handler: _Introspection_ListEdges_Handler},
		{MethodName: "ListRoutes", Handler: _Introspection_ListRoutes_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchEdges", Handler: _Introspection_WatchEdges_Handler, ServerStreams: true},
	},
	Metadata: "cluster/rpc.go",
}

// RegisterIntrospectionServer registers srv on s.
func RegisterIntrospectionServer(s *grpc.Server, srv IntrospectionServer) {
	s.RegisterService(&introspectionServiceDesc, srv)
}

// IntrospectionClient is the client-side façade for the Introspection
// service.
type IntrospectionClient interface {
	ListBlocks(ctx context.Context, in *ListBlocksRequest, opts ...grpc.CallOption) (*ListBlocksResponse, error)
	ListEdges(ctx context.Context, in *ListEdgesRequest, opts ...grpc.CallOption) (*ListEdgesResponse, error)
	ListRoutes(ctx context.Context, in *ListRoutesRequest, opts ...grpc.CallOption) (*ListRoutesResponse, error)
	WatchEdges(ctx context.Context, in *WatchEdgesRequest, opts ...grpc.CallOption) (Introspection_WatchEdgesClient, error)
}

type introspectionClient struct {
	cc grpc.ClientConnInterface
}

// NewIntrospectionClient wraps cc with the Introspection service's client
// stubs.
func NewIntrospectionClient(cc grpc.ClientConnInterface) IntrospectionClient {
	return &introspectionClient{cc: cc}
}

func (c *introspectionClient) ListBlocks(ctx context.Context, in *ListBlocksRequest, opts ...grpc.CallOption) (*ListBlocksResponse, error) {
	out := new(ListBlocksResponse)
	opts = append([]grpc.CallOption{jsonCallOption}, opts...)
	if err := c.cc.Invoke(ctx, methodListBlocks, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *introspectionClient) ListEdges(ctx context.Context, in *ListEdgesRequest, opts ...grpc.CallOption) (*ListEdgesResponse, error) {
	out := new(ListEdgesResponse)
	opts = append([]grpc.CallOption{jsonCallOption}, opts...)
	if err := c.cc.Invoke(ctx, methodListEdges, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *introspectionClient) ListRoutes(ctx context.Context, in *ListRoutesRequest, opts ...grpc.CallOption) (*ListRoutesResponse, error) {
	out := new(ListRoutesResponse)
	opts = append([]grpc.CallOption{jsonCallOption}, opts...)
	if err := c.cc.Invoke(ctx, methodListRoutes, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Introspection_WatchEdgesClient is the client-side handle for a WatchEdges
// stream.
type Introspection_WatchEdgesClient interface {
	Recv() (*ListEdgesResponse, error)
	grpc.ClientStream
}

type introspectionWatchEdgesClient struct {
	grpc.ClientStream
}

func (x *introspectionWatchEdgesClient) Recv() (*ListEdgesResponse, error) {
	m := new(ListEdgesResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *introspectionClient) WatchEdges(ctx context.Context, in *WatchEdgesRequest, opts ...grpc.CallOption) (Introspection_WatchEdgesClient, error) {
	opts = append([]grpc.CallOption{jsonCallOption}, opts...)
	stream, err := c.cc.NewStream(ctx, &introspectionServiceDesc.Streams[0], methodWatchEdges, opts...)
	if err != nil {
		return nil, err
	}
	x := &introspectionWatchEdgesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
