package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type inspectResponse struct {
	State    string        `json:"state"`
	Activity []interface{} `json:"activity"`
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect channel_id",
		Short: "Print a channel's state and recent activity log",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var resp inspectResponse
			if err := postRPC("/rpc/inspect", args[0], nil, &resp); err != nil {
				return err
			}
			fmt.Printf("state: %s\n", resp.State)
			for _, event := range resp.Activity {
				fmt.Printf("  %v\n", event)
			}
			return nil
		},
	}
}
