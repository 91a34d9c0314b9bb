package fsm

import (
	"errors"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
)

// onStateOverride stores a host-initiated forced-recovery proposal; it
// is never auto-applied (spec.md §4.7).
func (d *Driver) onStateOverride(so hostedwire.StateOverride) error {
	log.Warnf("channel %x: host proposed a forced-recovery override, awaiting operator acceptance", d.channelID)
	d.hc = d.hc.WithOverrideProposal(so)
	return d.persist()
}

// acceptOverride applies the stored overrideProposal (spec.md §4.7).
// Rejections never change state and return an error whose text is
// chosen to match the scenario the host operator is expected to see.
func (d *Driver) acceptOverride() error {
	so, ok := d.hc.OverrideProposal.UnwrapOr(hostedwire.StateOverride{}), d.hc.OverrideProposal.IsSome()
	if !ok {
		return errors.New("fsm: no pending override proposal")
	}

	l := d.hc.LastCrossSignedState
	newLocalBalance := int64(l.ChannelCapacityMsat) - int64(so.LocalBalanceMsat)

	switch {
	case newLocalBalance < 0:
		return errors.New("fsm: override would leave a negative local balance")
	case so.LocalUpdates < l.RemoteUpdates:
		return errors.New("fsm: new local update number from remote host is wrong")
	case so.RemoteUpdates < l.LocalUpdates:
		return errors.New("fsm: new remote update number from remote host is wrong")
	case so.BlockDay < l.BlockDay:
		return errors.New("fsm: override blockDay regresses")
	}

	next := l
	next.IncomingHtlcs = nil
	next.OutgoingHtlcs = nil
	next.LocalBalanceMsat = lnwire.MilliSatoshi(newLocalBalance)
	next.RemoteBalanceMsat = so.LocalBalanceMsat
	next.LocalUpdates = so.RemoteUpdates
	next.RemoteUpdates = so.LocalUpdates
	next.BlockDay = so.BlockDay
	next.RemoteSigOfLocal = so.LocalSigOfRemoteLCSS
	next = next.WithLocalSigOfRemoteFunc(d.env.Signer.SignHash)

	if !next.VerifyRemoteSig(d.remoteInfo.NodeID) {
		return errors.New("fsm: override signature does not verify")
	}

	preSpec := d.hc.LocalSpec()

	d.hc = d.hc.Promote(next).ClearProposals()
	if err := d.persist(); err != nil {
		return err
	}

	su := hostedwire.StateUpdate{
		BlockDay:             next.BlockDay,
		LocalUpdates:         next.LocalUpdates,
		RemoteUpdates:        next.RemoteUpdates,
		LocalSigOfRemoteLCSS: next.LocalSigOfRemote,
	}
	if err := d.send(su); err != nil {
		return err
	}

	for _, add := range preSpec.OutgoingHtlcs {
		d.listener.AddRejectedLocally(d.channelID, add, commits.ChannelNotAbleToSend)
	}
	d.listener.NotifyResolvers(d.channelID)
	return nil
}
