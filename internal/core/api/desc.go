package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "rulebuilder.editor.v1.EditorService"

// EditorServer is the server API for EditorService. Every method takes and
// returns a google.protobuf.Struct.
type EditorServer interface {
	Open(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Test(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Close(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ EditorServer = (*EditorService)(nil)

type structCall func(EditorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unary builds a method descriptor the way protoc-gen-go-grpc does for a
// unary RPC, with Struct as both request and response.
func unary(name string, call structCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EditorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EditorServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// EditorServiceDesc describes EditorService for grpc.ServiceRegistrar.
var EditorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EditorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Open", EditorServer.Open),
		unary("Apply", EditorServer.Apply),
		unary("Refresh", EditorServer.Refresh),
		unary("Validate", EditorServer.Validate),
		unary("Save", EditorServer.Save),
		unary("Test", EditorServer.Test),
		unary("Evaluate", EditorServer.Evaluate),
		unary("Close", EditorServer.Close),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rulebuilder/editor/v1/editor.proto",
}

// RegisterEditorServer registers srv on s.
func RegisterEditorServer(s grpc.ServiceRegistrar, srv EditorServer) {
	s.RegisterService(&EditorServiceDesc, srv)
}

// EditorClient calls EditorService over a client connection.
type EditorClient struct {
	cc grpc.ClientConnInterface
}

// NewEditorClient creates a client on cc.
func NewEditorClient(cc grpc.ClientConnInterface) *EditorClient {
	return &EditorClient{cc: cc}
}

// Call invokes method (e.g. "Open") with req.
func (c *EditorClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
