package lcss

import "github.com/rorp/immortan/hostedwire"

// NewClientLCSS builds the zero-state LCSS a client signs in response
// to the host's InitHostedChannel (spec.md §4.5,
// "WaitForAccept + InitHostedChannel"): no HTLCs, client balance equal
// to the host-proposed initialClientBalanceMsat, both update counters
// at zero.
func NewClientLCSS(init hostedwire.InitHostedChannel, refundScriptPubKey []byte, blockDay uint32) LCSS {
	return LCSS{
		IsHost:                   false,
		RefundScriptPubKey:       refundScriptPubKey,
		ChannelCapacityMsat:      init.ChannelCapacityMsat,
		InitialClientBalanceMsat: init.InitialClientBalanceMsat,
		MaxHtlcValueInFlightMsat: init.MaxHtlcValueInFlightMsat,
		HtlcMinimumMsat:          init.HtlcMinimumMsat,
		MaxAcceptedHtlcs:         init.MaxAcceptedHtlcs,
		Features:                init.Features,
		BlockDay:                 blockDay,
		LocalBalanceMsat:         init.InitialClientBalanceMsat,
		RemoteBalanceMsat:        init.ChannelCapacityMsat - init.InitialClientBalanceMsat,
	}
}
