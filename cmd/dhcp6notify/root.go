// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/nttcom/dhcp6notify/api/notify/v1"
)

var (
	client  pb.NotifyServiceClient
	jsonFmt bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dhcp6notify",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonFmt, "json", "j", false, "output json format")
	rootCmd.PersistentFlags().String("host", "127.0.0.1", "dhcp6notifyd connection address")
	rootCmd.PersistentFlags().StringP("port", "p", "50061", "dhcp6notifyd connection port")

	rootCmd.AddCommand(newStateCmd(), newSubscribeCmd(), newEncodeCmd())
	rootCmd.PersistentPreRunE = persistentPreRunE
	rootCmd.Run = runRootCmd

	return rootCmd
}

func persistentPreRunE(cmd *cobra.Command, args []string) error {
	conn, err := grpc.NewClient(
		net.JoinHostPort(cmd.Flag("host").Value.String(), cmd.Flag("port").Value.String()),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("failed to dial dhcp6notifyd connection: %v", err)
	}

	client = pb.NewNotifyServiceClient(conn)
	return nil
}

func runRootCmd(cmd *cobra.Command, args []string) {
	cmd.HelpFunc()(cmd, args)
}
