package fsm

import (
	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

// blockDaySkew returns the absolute difference between two block days,
// used for the ">1" disconnect test in spec.md §4.2.
func blockDaySkew(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// signingBase is lastCrossSignedState with any pending resizeProposal
// already folded in, the base nextLocalUnsignedLCSS builds from
// (spec.md §4.7: "the next LCSS folds the new capacity via withResize").
func (d *Driver) signingBase() lcss.LCSS {
	base := d.hc.LastCrossSignedState
	if rc, ok := d.hc.ResizeProposal.UnwrapOr(hostedwire.ResizeChannel{}), d.hc.ResizeProposal.IsSome(); ok {
		base = base.WithResize(rc.NewCapacityMsat)
	}
	return base
}

// signHandshake is CMD_SIGN (spec.md §4.2 step 1): build, sign, and send
// a StateUpdate for every pending update. A no-op when nothing is
// pending.
func (d *Driver) signHandshake() error {
	if d.state != commits.Open && d.state != commits.Sleeping {
		return nil
	}
	if len(d.hc.NextLocalUpdates) == 0 && len(d.hc.NextRemoteUpdates) == 0 {
		return nil
	}

	next, err := lcss.NextLocalUnsignedLCSS(d.signingBase(), d.hc.NextLocalUpdates, d.hc.NextRemoteUpdates, d.env.Blocks.CurrentBlockDay())
	if err != nil {
		return err
	}
	signed := next.WithLocalSigOfRemoteFunc(d.env.Signer.SignHash)
	d.pendingUnsigned = &signed

	return d.send(hostedwire.StateUpdate{
		BlockDay:             signed.BlockDay,
		LocalUpdates:         signed.LocalUpdates,
		RemoteUpdates:        signed.RemoteUpdates,
		LocalSigOfRemoteLCSS: signed.LocalSigOfRemote,
	})
}

// onSignReply is the CMD_SIGN handshake's step 2 (spec.md §4.2): the
// host's StateUpdate reply to a proposal we already sent.
func (d *Driver) onSignReply(su hostedwire.StateUpdate) error {
	currentDay := d.env.Blocks.CurrentBlockDay()
	if blockDaySkew(su.BlockDay, currentDay) > 1 {
		log.Debugf("channel %x: blockDay skew %d vs %d, disconnecting", d.channelID, su.BlockDay, currentDay)
		d.setState(commits.Sleeping)
		return ErrDisconnect
	}

	next, err := lcss.NextLocalUnsignedLCSS(d.signingBase(), d.hc.NextLocalUpdates, d.hc.NextRemoteUpdates, su.BlockDay)
	if err != nil {
		return err
	}

	if su.RemoteUpdates < next.LocalUpdates {
		if err := d.persist(); err != nil {
			return err
		}
		return d.signHandshake()
	}

	next.RemoteSigOfLocal = su.LocalSigOfRemoteLCSS
	next = next.WithLocalSigOfRemoteFunc(d.env.Signer.SignHash)

	if !next.VerifyRemoteSig(d.remoteInfo.NodeID) {
		retried, ok := d.retryAgainstResize(su)
		if !ok {
			return d.localSuspend(hostedwire.ErrHostedWrongRemoteSig)
		}
		next = retried
	}

	rejectedRemotely := pendingRemoteRejects(d.hc.NextRemoteUpdates)
	preSpec := d.hc.LocalSpec()

	d.hc = d.hc.Promote(next).ClearProposals()
	d.pendingUnsigned = nil
	if err := d.persist(); err != nil {
		return err
	}

	for _, id := range rejectedRemotely {
		for _, add := range preSpec.OutgoingHtlcs {
			if add.ID == id {
				d.listener.AddRejectedRemotely(d.channelID, add)
				break
			}
		}
	}
	d.listener.NotifyResolvers(d.channelID)
	return nil
}

// retryAgainstResize, when a resizeProposal is pending, retries signature
// verification against the LCSS built without the resize (signingBase
// already folded the resize into the first attempt), the fallback
// spec.md §4.2 names before giving up and suspending with
// ERR_HOSTED_WRONG_REMOTE_SIG.
func (d *Driver) retryAgainstResize(su hostedwire.StateUpdate) (lcss.LCSS, bool) {
	if d.hc.ResizeProposal.IsNone() {
		return lcss.LCSS{}, false
	}
	retry, err := lcss.NextLocalUnsignedLCSS(d.hc.LastCrossSignedState, d.hc.NextLocalUpdates, d.hc.NextRemoteUpdates, su.BlockDay)
	if err != nil {
		return lcss.LCSS{}, false
	}
	retry.RemoteSigOfLocal = su.LocalSigOfRemoteLCSS
	retry = retry.WithLocalSigOfRemoteFunc(d.env.Signer.SignHash)
	if !retry.VerifyRemoteSig(d.remoteInfo.NodeID) {
		return lcss.LCSS{}, false
	}
	return retry, true
}

// pendingRemoteRejects returns the HTLC ids any UpdateFailHtlc or
// UpdateFailMalformedHtlc in remoteUpdates targets (spec.md §4.2: "any
// nextRemoteUpdates entry that was a fail emits a remote-reject event").
func pendingRemoteRejects(remoteUpdates []hostedwire.Message) []uint64 {
	var ids []uint64
	for _, m := range remoteUpdates {
		switch f := m.(type) {
		case hostedwire.UpdateFailHtlc:
			ids = append(ids, f.ID)
		case hostedwire.UpdateFailMalformedHtlc:
			ids = append(ids, f.ID)
		}
	}
	return ids
}
