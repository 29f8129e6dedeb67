// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package v1 declares the dhcp6notify.v1.NotifyService gRPC service. Messages
// are well-known protobuf types, so the service needs no generated code.
package v1

import (
	"context"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dhcp6notify.v1.NotifyService"

const (
	NotifyService_Subscribe_FullMethodName = "/" + ServiceName + "/Subscribe"
	NotifyService_GetState_FullMethodName  = "/" + ServiceName + "/GetState"
)

// NotifyServiceClient is the client API for NotifyService.
type NotifyServiceClient interface {
	// Subscribe streams every notification published after the call.
	Subscribe(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
	// GetState returns the document built from the current state.
	GetState(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type notifyServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewNotifyServiceClient(cc grpc.ClientConnInterface) NotifyServiceClient {
	return &notifyServiceClient{cc}
}

func (c *notifyServiceClient) Subscribe(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &NotifyService_ServiceDesc.Streams[0], NotifyService_Subscribe_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[empty.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *notifyServiceClient) GetState(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, NotifyService_GetState_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NotifyServiceServer is the server API for NotifyService.
type NotifyServiceServer interface {
	Subscribe(*empty.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	GetState(context.Context, *empty.Empty) (*structpb.Struct, error)
	mustEmbedUnimplementedNotifyServiceServer()
}

// UnimplementedNotifyServiceServer must be embedded by server implementations.
type UnimplementedNotifyServiceServer struct{}

func (UnimplementedNotifyServiceServer) Subscribe(*empty.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Errorf(codes.Unimplemented, "method Subscribe not implemented")
}
func (UnimplementedNotifyServiceServer) GetState(context.Context, *empty.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetState not implemented")
}
func (UnimplementedNotifyServiceServer) mustEmbedUnimplementedNotifyServiceServer() {}

func RegisterNotifyServiceServer(s grpc.ServiceRegistrar, srv NotifyServiceServer) {
	s.RegisterService(&NotifyService_ServiceDesc, srv)
}

func _NotifyService_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	m := new(empty.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(NotifyServiceServer).Subscribe(m, &grpc.GenericServerStream[empty.Empty, structpb.Struct]{ServerStream: stream})
}

func _NotifyService_GetState_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(empty.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotifyServiceServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: NotifyService_GetState_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotifyServiceServer).GetState(ctx, req.(*empty.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var NotifyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotifyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetState",
			Handler:    _NotifyService_GetState_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _NotifyService_Subscribe_Handler,
			ServerStreams: true,
		},
	},
}
