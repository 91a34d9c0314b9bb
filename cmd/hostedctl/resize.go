package main

import (
	"github.com/spf13/cobra"
)

type proposeResizeRequest struct {
	DeltaMsat uint64 `json:"delta_msat"`
}

func newProposeResizeCommand() *cobra.Command {
	var req proposeResizeRequest
	cmd := &cobra.Command{
		Use:   "propose-resize channel_id",
		Short: "Propose growing the channel's capacity (CMD_PROPOSE_RESIZE)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postRPC("/rpc/resize", args[0], req, nil)
		},
	}
	cmd.Flags().Uint64Var(&req.DeltaMsat, "delta_msat", 0, "Capacity increase, in millisatoshis")
	return cmd
}
