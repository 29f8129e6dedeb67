// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/golang/protobuf/ptypes/empty"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/nttcom/dhcp6notify/api/notify/v1"
)

var errNoSource = errors.New("no state source")

type APIServer struct {
	bus        *Server
	grpcServer *grpc.Server
	pb.UnimplementedNotifyServiceServer
}

func NewAPIServer(bus *Server, grpcServer *grpc.Server) *APIServer {
	s := &APIServer{
		bus:        bus,
		grpcServer: grpcServer,
	}
	pb.RegisterNotifyServiceServer(grpcServer, s)
	return s
}

func (s *APIServer) Serve(address string, port string) error {
	listenInfo := net.JoinHostPort(address, port)
	s.bus.logger.Info("gRPC listen", zap.String("listenInfo", listenInfo))
	grpcListener, err := net.Listen("tcp", listenInfo)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.grpcServer.Serve(grpcListener)
}

// Stop ends every stream after its queued notifications, then stops the
// gRPC server.
func (s *APIServer) Stop() {
	s.bus.Close()
	s.grpcServer.GracefulStop()
}

func (s *APIServer) Subscribe(_ *empty.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ss := s.bus.openSession()
	defer s.bus.closeSession(ss)
	s.bus.logger.Info("subscriber connected", zap.Uint64("session", ss.id))

	err := ss.run(stream.Context(), stream.Send)
	s.bus.logger.Info("subscriber disconnected", zap.Uint64("session", ss.id), zap.Error(err))
	return err
}

func (s *APIServer) GetState(context.Context, *empty.Empty) (*structpb.Struct, error) {
	s.bus.logger.Info("Receive GetState API request")

	doc, err := s.bus.state()
	if errors.Is(err, errNoSource) {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build state: %v", err)
	}
	defer doc.Release()

	ret := doc.Root().Struct()
	s.bus.logger.Info("Send GetState API reply", zap.Int("size", doc.Size()))
	return ret, nil
}
