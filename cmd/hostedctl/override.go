package main

import (
	"github.com/spf13/cobra"
)

func newAcceptOverrideCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "accept-override channel_id",
		Short: "Accept the host's pending forced-recovery override (CMD_ACCEPT_OVERRIDE)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postRPC("/rpc/accept_override", args[0], nil, nil)
		},
	}
}
