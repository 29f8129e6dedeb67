// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pb "github.com/nttcom/dhcp6notify/api/notify/v1"
	"github.com/nttcom/dhcp6notify/cmd/dhcp6notify/grpc"
)

func newSubscribeCmd() *cobra.Command {
	subscribeCmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Print notifications as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			return grpc.Subscribe(ctx, client, func(n *pb.Notification) error {
				fmt.Fprintf(w, "[%s] %s\n", n.Type, n.Object)
				return printDocument(w, n.Data, jsonFmt)
			})
		},
	}
	return subscribeCmd
}
