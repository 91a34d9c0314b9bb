package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

type failHtlcRequest struct {
	ID     uint64 `json:"id"`
	Reason []byte `json:"reason"`
}

func newFailHtlcCommand() *cobra.Command {
	var (
		req       failHtlcRequest
		reasonHex string
	)
	cmd := &cobra.Command{
		Use:   "fail-htlc channel_id",
		Short: "Fail an incoming HTLC (CMD_FAIL_HTLC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if reasonHex != "" {
				raw, err := hex.DecodeString(reasonHex)
				if err != nil {
					return fmt.Errorf("reason must be hex-encoded: %w", err)
				}
				req.Reason = raw
			}
			return postRPC("/rpc/fail", args[0], req, nil)
		},
	}
	cmd.Flags().Uint64Var(&req.ID, "id", 0, "HTLC id")
	cmd.Flags().StringVar(&reasonHex, "reason", "", "Hex-encoded onion failure blob")
	return cmd
}
