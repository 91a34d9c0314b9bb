package lcss

import (
	"github.com/rorp/immortan/hostedwire"
)

// Fold applies every update this side originated (localUpdates) and
// every update the peer originated (remoteUpdates) to base, in that
// order, and returns the resulting balances, HTLC sets, and update
// counters (spec.md §4.2). It never touches signatures or blockDay:
// NextLocalUnsignedLCSS sets those afterwards to build a signable state,
// while a validation-only caller (commits.HostedCommits.NextLocalSpec) reads the balances and
// HTLC sets straight out of the result without ever signing it.
func Fold(base LCSS, localUpdates, remoteUpdates []hostedwire.Message) (LCSS, error) {
	out := base

	for _, u := range localUpdates {
		if err := applyOriginatedByUs(&out, u); err != nil {
			return LCSS{}, err
		}
	}
	for _, u := range remoteUpdates {
		if err := applyOriginatedByPeer(&out, u); err != nil {
			return LCSS{}, err
		}
	}

	out.LocalUpdates += uint32(len(localUpdates))
	out.RemoteUpdates += uint32(len(remoteUpdates))

	return out, nil
}

// applyOriginatedByUs folds a single update we sent into l.
func applyOriginatedByUs(l *LCSS, msg hostedwire.Message) error {
	switch m := msg.(type) {
	case hostedwire.AddHtlc:
		l.OutgoingHtlcs = append(l.OutgoingHtlcs, m)
		l.LocalBalanceMsat -= m.AmountMsat

	case hostedwire.UpdateFulfillHtlc:
		add, rest, err := popByID(l.IncomingHtlcs, m.ID)
		if err != nil {
			return err
		}
		l.IncomingHtlcs = rest
		l.LocalBalanceMsat += add.AmountMsat

	case hostedwire.UpdateFailHtlc:
		add, rest, err := popByID(l.IncomingHtlcs, m.ID)
		if err != nil {
			return err
		}
		l.IncomingHtlcs = rest
		l.RemoteBalanceMsat += add.AmountMsat

	case hostedwire.UpdateFailMalformedHtlc:
		add, rest, err := popByID(l.IncomingHtlcs, m.ID)
		if err != nil {
			return err
		}
		l.IncomingHtlcs = rest
		l.RemoteBalanceMsat += add.AmountMsat

	default:
		return errUnknownUpdateMessage
	}
	return nil
}

// applyOriginatedByPeer folds a single update the peer sent into l. It is
// the mirror image of applyOriginatedByUs: every role (who pays, who is
// refunded) is swapped because the add/fulfill/fail now flows the other
// direction.
func applyOriginatedByPeer(l *LCSS, msg hostedwire.Message) error {
	switch m := msg.(type) {
	case hostedwire.AddHtlc:
		l.IncomingHtlcs = append(l.IncomingHtlcs, m)
		l.RemoteBalanceMsat -= m.AmountMsat

	case hostedwire.UpdateFulfillHtlc:
		add, rest, err := popByID(l.OutgoingHtlcs, m.ID)
		if err != nil {
			return err
		}
		l.OutgoingHtlcs = rest
		l.RemoteBalanceMsat += add.AmountMsat

	case hostedwire.UpdateFailHtlc:
		add, rest, err := popByID(l.OutgoingHtlcs, m.ID)
		if err != nil {
			return err
		}
		l.OutgoingHtlcs = rest
		l.LocalBalanceMsat += add.AmountMsat

	case hostedwire.UpdateFailMalformedHtlc:
		add, rest, err := popByID(l.OutgoingHtlcs, m.ID)
		if err != nil {
			return err
		}
		l.OutgoingHtlcs = rest
		l.LocalBalanceMsat += add.AmountMsat

	default:
		return errUnknownUpdateMessage
	}
	return nil
}

// popByID removes the AddHtlc with the given id from htlcs, returning it
// alongside the remaining slice.
func popByID(htlcs []hostedwire.AddHtlc, id uint64) (hostedwire.AddHtlc, []hostedwire.AddHtlc, error) {
	for i, h := range htlcs {
		if h.ID == id {
			rest := make([]hostedwire.AddHtlc, 0, len(htlcs)-1)
			rest = append(rest, htlcs[:i]...)
			rest = append(rest, htlcs[i+1:]...)
			return h, rest, nil
		}
	}
	return hostedwire.AddHtlc{}, nil, errHtlcNotFound
}

// NextLocalUnsignedLCSS builds the unsigned LCSS this side would sign
// next: base with every pending update folded in, stamped with
// blockDay, and both signatures cleared (spec.md §4.2).
func NextLocalUnsignedLCSS(base LCSS, localUpdates, remoteUpdates []hostedwire.Message, blockDay uint32) (LCSS, error) {
	next, err := Fold(base, localUpdates, remoteUpdates)
	if err != nil {
		return LCSS{}, err
	}
	next.BlockDay = blockDay
	return next.WithoutSigs(), nil
}
