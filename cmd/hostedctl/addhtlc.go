package main

import (
	"github.com/spf13/cobra"
)

type addHtlcRequest struct {
	AmountMsat  uint64 `json:"amount_msat"`
	PaymentHash string `json:"payment_hash"`
	CltvExpiry  uint32 `json:"cltv_expiry"`
}

func newAddHtlcCommand() *cobra.Command {
	var req addHtlcRequest
	cmd := &cobra.Command{
		Use:   "add-htlc channel_id",
		Short: "Propose a new outgoing HTLC (CMD_ADD_HTLC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postRPC("/rpc/add", args[0], req, nil)
		},
	}
	cmd.Flags().Uint64Var(&req.AmountMsat, "amount_msat", 0, "Amount to send, in millisatoshis")
	cmd.Flags().StringVar(&req.PaymentHash, "payment_hash", "", "Hex-encoded 32-byte payment hash")
	cmd.Flags().Uint32Var(&req.CltvExpiry, "cltv_expiry", 0, "Absolute block height the HTLC expires at")
	return cmd
}
