// Package api is the gRPC lookup surface of the relay daemon. Payloads are
// JSON documents carried in protobuf wrapper messages.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "dhcprelay.Records"

const (
	MethodList          = "/" + ServiceName + "/List"
	MethodGet           = "/" + ServiceName + "/Get"
	MethodCounters      = "/" + ServiceName + "/Counters"
	MethodResetCounters = "/" + ServiceName + "/ResetCounters"
	MethodServers       = "/" + ServiceName + "/Servers"
)

// RecordsServer is implemented by the daemon gateway.
type RecordsServer interface {
	// List returns every record as a JSON array.
	List(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	// Get returns the record for a "mac/vlan" host id.
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Counters(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	ResetCounters(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Servers(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
}

func RegisterRecordsServer(s grpc.ServiceRegistrar, srv RecordsServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: unary(MethodList, RecordsServer.List)},
		{MethodName: "Get", Handler: unary(MethodGet, RecordsServer.Get)},
		{MethodName: "Counters", Handler: unary(MethodCounters, RecordsServer.Counters)},
		{MethodName: "ResetCounters", Handler: unary(MethodResetCounters, RecordsServer.ResetCounters)},
		{MethodName: "Servers", Handler: unary(MethodServers, RecordsServer.Servers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dhcprelay/records.proto",
}

func unary[Req, Resp any](fullMethod string, call func(RecordsServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordsServer), ctx, req.(*Req))
		})
	}
}
