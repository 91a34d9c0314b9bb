package main

import (
	"github.com/spf13/cobra"
)

type localSuspendRequest struct {
	Code string `json:"code"`
}

func newSuspendCommand() *cobra.Command {
	var req localSuspendRequest
	cmd := &cobra.Command{
		Use:   "suspend channel_id",
		Short: "Manually suspend the channel with an ERR_HOSTED_* code (CMD_LOCAL_SUSPEND)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postRPC("/rpc/suspend", args[0], req, nil)
		},
	}
	cmd.Flags().StringVar(&req.Code, "code", "", "ERR_HOSTED_* suspend code")
	return cmd
}
