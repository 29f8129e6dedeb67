// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package grpc

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/nttcom/dhcp6notify/api/notify/v1"
)

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Second)
}

func GetState(client pb.NotifyServiceClient) (*structpb.Struct, error) {
	ctx, cancel := withTimeout()
	defer cancel()

	return client.GetState(ctx, &empty.Empty{})
}

// Subscribe calls fn for every notification until ctx ends, the server closes
// the stream or fn fails.
func Subscribe(ctx context.Context, client pb.NotifyServiceClient, fn func(*pb.Notification) error) error {
	stream, err := client.Subscribe(ctx, &empty.Empty{})
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := pb.ParseNotification(msg)
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
}
