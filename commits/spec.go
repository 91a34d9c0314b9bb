package commits

import (
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

// HtlcSpec is the projected balances and in-flight HTLC sets a
// HostedCommits would have if every pending update currently folded into
// it were applied (spec.md §2 item 4, §4.3). It is a read-only view, not
// something that gets signed — only nextLocalUnsignedLCSS produces a
// signable LCSS.
type HtlcSpec struct {
	LocalBalanceMsat  lnwire.MilliSatoshi
	RemoteBalanceMsat lnwire.MilliSatoshi
	IncomingHtlcs     []hostedwire.AddHtlc
	OutgoingHtlcs     []hostedwire.AddHtlc
}

func specOf(l lcss.LCSS) HtlcSpec {
	return HtlcSpec{
		LocalBalanceMsat:  l.LocalBalanceMsat,
		RemoteBalanceMsat: l.RemoteBalanceMsat,
		IncomingHtlcs:     l.IncomingHtlcs,
		OutgoingHtlcs:     l.OutgoingHtlcs,
	}
}

// InFlightMsat sums every in-flight amount across both directions.
func (s HtlcSpec) InFlightMsat() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, h := range s.IncomingHtlcs {
		total += h.AmountMsat
	}
	for _, h := range s.OutgoingHtlcs {
		total += h.AmountMsat
	}
	return total
}

// LocalSpec is the already-signed view: the balances and HTLC sets of
// the last cross-signed state itself, with no pending updates folded in.
func (hc HostedCommits) LocalSpec() HtlcSpec {
	return specOf(hc.LastCrossSignedState)
}

// NextLocalSpec folds every pending local and remote update onto the
// last cross-signed state, producing the view sendAdd validates a new
// outgoing HTLC against and the view nextLocalUnsignedLCSS would sign
// if CMD_SIGN fired right now.
func (hc HostedCommits) NextLocalSpec() (HtlcSpec, error) {
	next, err := lcss.Fold(hc.LastCrossSignedState, hc.NextLocalUpdates, hc.NextRemoteUpdates)
	if err != nil {
		return HtlcSpec{}, err
	}
	return specOf(next), nil
}

// NextRemoteSpec is the same projected state as NextLocalSpec, named
// separately because receiveAdd validates a peer-originated add against
// it by checking the remote side's projected balance, the mirror of
// what sendAdd checks on the local side (spec.md §4.3). Both read from
// the one folded projection; there is no second, independently-tracked
// state.
func (hc HostedCommits) NextRemoteSpec() (HtlcSpec, error) {
	return hc.NextLocalSpec()
}
