package internalgrpc

import (
	"context"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName   = "calendarhelper.v1.Events"
	extractMethod = "/" + serviceName + "/Extract"
	correctMethod = "/" + serviceName + "/Correct"
	configMethod  = "/" + serviceName + "/Config"
)

// EventsServer exchanges JSON shaped messages as google.protobuf.Struct.
type EventsServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Correct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Config(context.Context, *empty.Empty) (*structpb.Struct, error)
}

var eventsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EventsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "Correct", Handler: correctHandler},
		{MethodName: "Config", Handler: configHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calendarhelper/v1/events.proto",
}

func RegisterEventsServer(s grpc.ServiceRegistrar, srv EventsServer) {
	s.RegisterService(&eventsServiceDesc, srv)
}

func extractHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventsServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EventsServer).Extract(ctx, req.(*structpb.Struct))
	})
}

func correctHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventsServer).Correct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: correctMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EventsServer).Correct(ctx, req.(*structpb.Struct))
	})
}

func configHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(empty.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventsServer).Config(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: configMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EventsServer).Config(ctx, req.(*empty.Empty))
	})
}
