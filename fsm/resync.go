package fsm

import (
	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

// comparisonBase is our LCSS with a pending resizeProposal folded in
// when it matches the capacity the peer just reported, the "apply it to
// our record before comparing" first step of attemptInitResync
// (spec.md §4.6 step 1).
func (d *Driver) comparisonBase(remote lcss.LCSS) lcss.LCSS {
	local := d.hc.LastCrossSignedState
	rc, hasResize := d.hc.ResizeProposal.UnwrapOr(hostedwire.ResizeChannel{}), d.hc.ResizeProposal.IsSome()
	if hasResize && rc.NewCapacityMsat == remote.ChannelCapacityMsat {
		return local.WithResize(rc.NewCapacityMsat)
	}
	return local
}

// attemptInitResync reconciles our LCSS against the host's on
// reconnect (spec.md §4.6). remote is R in the spec's notation; our own
// LCSS is L. remote is the host's own copy of the state, so the same
// key/field pairing as restoreFromHost applies: our earlier
// countersignature verifies against our own key, the host's against
// the host's.
func (d *Driver) attemptInitResync(remote lcss.LCSS) error {
	if !remote.VerifyRemoteSig(d.env.Signer.PubKey()) || !remote.VerifyLocalSig(d.remoteInfo.NodeID) {
		return d.localSuspend(hostedwire.ErrHostedWrongRemoteSig)
	}

	local := d.comparisonBase(remote)

	weAreEven := local.RemoteUpdates == remote.LocalUpdates && local.LocalUpdates == remote.RemoteUpdates
	weAreAhead := local.RemoteUpdates > remote.LocalUpdates || local.LocalUpdates > remote.RemoteUpdates

	if weAreEven || weAreAhead {
		log.Debugf("channel %x: resync even-or-ahead", d.channelID)
		return d.resyncEvenOrAhead(local)
	}
	log.Debugf("channel %x: resync behind, local=%d/%d remote=%d/%d", d.channelID, local.LocalUpdates, local.RemoteUpdates, remote.LocalUpdates, remote.RemoteUpdates)
	return d.resyncBehind(local, remote)
}

// resyncEvenOrAhead is spec.md §4.6 step 4: resend our view and whatever
// is still pending, clear nextRemoteUpdates (the peer must resend), and
// reopen.
func (d *Driver) resyncEvenOrAhead(local lcss.LCSS) error {
	msgs := []hostedwire.Message{local}
	if rc, ok := d.hc.ResizeProposal.UnwrapOr(hostedwire.ResizeChannel{}), d.hc.ResizeProposal.IsSome(); ok {
		msgs = append(msgs, rc)
	}
	for _, m := range d.hc.NextLocalUpdates {
		msgs = append(msgs, m)
	}

	d.hc = d.hc.DropNextRemoteUpdates()
	if err := d.persist(); err != nil {
		return err
	}
	if err := d.send(msgs...); err != nil {
		return err
	}
	d.setState(commits.Open)
	return nil
}

// resyncBehind is spec.md §4.6 step 5: reconstruct the state the host
// must already hold from the acked counts, or fall back to adopting the
// host's view wholesale if we are too far behind to reconstruct it.
func (d *Driver) resyncBehind(local, remote lcss.LCSS) error {
	if remote.RemoteUpdates < local.LocalUpdates || remote.LocalUpdates < local.RemoteUpdates {
		return d.adoptRemoteView(remote)
	}

	localAcked := remote.RemoteUpdates - local.LocalUpdates
	remoteAcked := remote.LocalUpdates - local.RemoteUpdates

	if int(localAcked) > len(d.hc.NextLocalUpdates) || int(remoteAcked) > len(d.hc.NextRemoteUpdates) {
		return d.adoptRemoteView(remote)
	}

	accountedLocal := d.hc.NextLocalUpdates[:localAcked]
	leftoverLocal := append([]hostedwire.Message{}, d.hc.NextLocalUpdates[localAcked:]...)
	accountedRemote := d.hc.NextRemoteUpdates[:remoteAcked]

	synced, err := lcss.NextLocalUnsignedLCSS(local, accountedLocal, accountedRemote, remote.BlockDay)
	if err != nil {
		return d.adoptRemoteView(remote)
	}
	synced.RemoteSigOfLocal = remote.LocalSigOfRemote
	synced = synced.WithLocalSigOfRemoteFunc(d.env.Signer.SignHash)

	if !sameLCSS(synced.Reverse(), remote) {
		return d.adoptRemoteView(remote)
	}

	d.hc = d.hc.PromoteWithLeftover(synced, leftoverLocal)
	if err := d.persist(); err != nil {
		return err
	}

	msgs := []hostedwire.Message{synced}
	if rc, ok := d.hc.ResizeProposal.UnwrapOr(hostedwire.ResizeChannel{}), d.hc.ResizeProposal.IsSome(); ok {
		msgs = append(msgs, rc)
	}
	for _, m := range leftoverLocal {
		msgs = append(msgs, m)
	}
	if err := d.send(msgs...); err != nil {
		return err
	}
	d.setState(commits.Open)
	return nil
}

// adoptRemoteView is the "too far behind" fallback: the host's reverse
// view becomes authoritative, any outgoing HTLC that does not survive
// the jump is reported lost, and we echo the adopted state back.
func (d *Driver) adoptRemoteView(remote lcss.LCSS) error {
	log.Warnf("channel %x: too far behind to reconstruct, adopting the host's view", d.channelID)
	before := d.hc.LocalSpec()
	adopted := remote.Reverse()

	d.hc = commits.Reset(d.remoteInfo, adopted)
	if err := d.persist(); err != nil {
		return err
	}

	after := d.hc.LocalSpec()
	for _, add := range before.OutgoingHtlcs {
		lost := true
		for _, stillThere := range after.OutgoingHtlcs {
			if stillThere.ID == add.ID {
				lost = false
				break
			}
		}
		if lost {
			d.listener.AddRejectedLocally(d.channelID, add, commits.ChannelNotAbleToSend)
		}
	}

	if err := d.send(remote.Reverse()); err != nil {
		return err
	}
	d.setState(commits.Open)
	return nil
}

// sameLCSS compares every field attemptInitResync's reverse-equality
// check cares about: balances, counters, HTLC sets, and signatures.
func sameLCSS(a, b lcss.LCSS) bool {
	if a.LocalBalanceMsat != b.LocalBalanceMsat || a.RemoteBalanceMsat != b.RemoteBalanceMsat {
		return false
	}
	if a.LocalUpdates != b.LocalUpdates || a.RemoteUpdates != b.RemoteUpdates {
		return false
	}
	if a.BlockDay != b.BlockDay {
		return false
	}
	if a.LocalSigOfRemote != b.LocalSigOfRemote || a.RemoteSigOfLocal != b.RemoteSigOfLocal {
		return false
	}
	return len(a.IncomingHtlcs) == len(b.IncomingHtlcs) && len(a.OutgoingHtlcs) == len(b.OutgoingHtlcs)
}
