// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nttcom/dhcp6notify/cmd/dhcp6notify/grpc"
)

func newStateCmd() *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current notification document",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := grpc.GetState(client)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc, jsonFmt)
		},
	}
	return stateCmd
}

func printDocument(w io.Writer, doc *structpb.Struct, jsonFlag bool) error {
	if jsonFlag {
		// output json format
		b, err := protojson.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	//output user-friendly format
	fields := doc.GetFields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b, err := json.Marshal(fields[name].AsInterface())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", name, b)
	}
	return nil
}
