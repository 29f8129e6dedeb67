// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nttcom/dhcp6notify/internal/pkg/snapshot"
	"github.com/nttcom/dhcp6notify/pkg/notifier"
)

const (
	formatJSON = "json"
	formatCBOR = "cbor"
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a notification document offline from a snapshot or capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString("file")
			if err != nil {
				return err
			}
			pcap, err := cmd.Flags().GetString("pcap")
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			return encode(cmd, file, pcap, format, limit)
		},
	}

	encodeCmd.Flags().StringP("file", "f", "", "YAML snapshot file")
	encodeCmd.Flags().String("pcap", "", "pcap or pcapng capture holding a DHCPv6 Reply")
	encodeCmd.Flags().String("format", formatJSON, "output format (json, cbor)")
	encodeCmd.Flags().Int("limit", 0, "document size limit in bytes (0 for the default)")
	encodeCmd.MarkFlagsMutuallyExclusive("file", "pcap")
	return encodeCmd
}

func encode(cmd *cobra.Command, file, pcap, format string, limit int) error {
	var (
		state *snapshot.State
		err   error
	)
	switch {
	case file != "":
		state, err = snapshot.LoadFile(file)
	case pcap != "":
		state, err = snapshot.LoadPcap(pcap)
	default:
		return errors.New("either --file or --pcap is required")
	}
	if err != nil {
		return err
	}

	doc, err := notifier.NewAssembler(state, nil, nil, notifier.WithDocumentLimit(limit)).Build()
	if err != nil {
		return err
	}
	defer doc.Release()

	w := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		b, err := doc.Root().MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	case formatCBOR:
		b, err := doc.Root().MarshalCBOR()
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}
