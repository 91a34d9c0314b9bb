package main

import (
	"github.com/spf13/cobra"
)

type fulfillHtlcRequest struct {
	ID       uint64 `json:"id"`
	Preimage string `json:"preimage"`
}

func newFulfillHtlcCommand() *cobra.Command {
	var req fulfillHtlcRequest
	cmd := &cobra.Command{
		Use:   "fulfill-htlc channel_id",
		Short: "Reveal the preimage for an incoming HTLC (CMD_FULFILL_HTLC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postRPC("/rpc/fulfill", args[0], req, nil)
		},
	}
	cmd.Flags().Uint64Var(&req.ID, "id", 0, "HTLC id")
	cmd.Flags().StringVar(&req.Preimage, "preimage", "", "Hex-encoded 32-byte preimage")
	return cmd
}
