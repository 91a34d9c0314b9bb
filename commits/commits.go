// Package commits implements HostedCommits, the in-memory per-channel
// commitment record, and every pure state transition it supports. Every
// mutator here returns a new HostedCommits (or an error) and never
// touches its receiver, the discipline channels/state.go's SharedState
// follows for on-chain moonbeam channels.
package commits

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	fn "github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

// CltvSafetyDelta is the minimum number of blocks an outgoing HTLC's
// cltvExpiry must clear the current block height by before sendAdd will
// accept it (spec.md §4.3).
const CltvSafetyDelta = 6

// RemoteInfo identifies the peer on the other end of a hosted channel:
// its long-lived node id and the node-specific key it uses for this
// particular channel relationship.
type RemoteInfo struct {
	NodeID             *btcec.PublicKey
	NodeSpecificPubKey *btcec.PublicKey
}

// ChannelID derives the hosted-channel id: sha256(nodeSpecificPubKey ||
// nodeId) (spec.md §6, "Persistent state").
func (r RemoteInfo) ChannelID() lnwire.ChannelID {
	h := sha256.New()
	h.Write(r.NodeSpecificPubKey.SerializeCompressed())
	h.Write(r.NodeID.SerializeCompressed())

	var id lnwire.ChannelID
	copy(id[:], h.Sum(nil))
	return id
}

// ShortChannelID truncates ChannelID to its first 8 bytes, the
// hosted-channel short-id derivation (spec.md §6).
func (r RemoteInfo) ShortChannelID() uint64 {
	id := r.ChannelID()
	return binary.BigEndian.Uint64(id[:8])
}

// HostedCommits is the stored per-channel record (spec.md §3).
type HostedCommits struct {
	RemoteInfo RemoteInfo

	LastCrossSignedState lcss.LCSS

	// NextLocalUpdates are our unsigned outgoing updates; NextRemoteUpdates
	// are theirs. Both are cleared on every successful signing promotion.
	NextLocalUpdates  []hostedwire.Message
	NextRemoteUpdates []hostedwire.Message

	UpdateOpt fn.Option[hostedwire.ChannelUpdate]

	// PostErrorOutgoingResolvedIds suppresses double-handling of an
	// outgoing HTLC that was resolved (fulfilled or expired) after the
	// channel entered error state.
	PostErrorOutgoingResolvedIds map[uint64]struct{}

	LocalError  fn.Option[hostedwire.Fail]
	RemoteError fn.Option[hostedwire.Fail]

	ResizeProposal    fn.Option[hostedwire.ResizeChannel]
	OverrideProposal  fn.Option[hostedwire.StateOverride]
}

// IsError reports whether either side has raised an error (spec.md
// §4.5: "Once localError or remoteError becomes Some, the channel is
// suspended").
func (hc HostedCommits) IsError() bool {
	return hc.LocalError.IsSome() || hc.RemoteError.IsSome()
}

// clone returns a shallow copy of hc with PostErrorOutgoingResolvedIds
// deep-copied, so callers can add to the set without mutating hc's own
// map (maps are reference types; every mutator must go through this to
// stay pure).
func (hc HostedCommits) clone() HostedCommits {
	out := hc
	out.PostErrorOutgoingResolvedIds = make(map[uint64]struct{}, len(hc.PostErrorOutgoingResolvedIds))
	for id := range hc.PostErrorOutgoingResolvedIds {
		out.PostErrorOutgoingResolvedIds[id] = struct{}{}
	}
	out.NextLocalUpdates = append([]hostedwire.Message{}, hc.NextLocalUpdates...)
	out.NextRemoteUpdates = append([]hostedwire.Message{}, hc.NextRemoteUpdates...)
	return out
}

// AddLocal is sendAdd (spec.md §4.3): validate an outgoing HTLC against
// the projected nextLocalSpec and, on success, append it to
// NextLocalUpdates.
func (hc HostedCommits) AddLocal(add hostedwire.AddHtlc, blockHeight uint32) (HostedCommits, error) {
	if hc.IsError() {
		return hc, &RejectError{Reason: ChannelNotAbleToSend}
	}

	spec, err := hc.NextLocalSpec()
	if err != nil {
		return hc, NewTransitionError(hc.RemoteInfo.ChannelID(), err.Error())
	}

	if add.AmountMsat < hc.LastCrossSignedState.HtlcMinimumMsat {
		return hc, &RejectError{Reason: ChannelNotAbleToSend}
	}
	projectedInFlight := spec.InFlightMsat() + add.AmountMsat
	if projectedInFlight > hc.LastCrossSignedState.MaxHtlcValueInFlightMsat {
		return hc, &RejectError{Reason: ChannelNotAbleToSend}
	}
	if len(spec.IncomingHtlcs)+len(spec.OutgoingHtlcs)+1 > int(hc.LastCrossSignedState.MaxAcceptedHtlcs) {
		return hc, &RejectError{Reason: ChannelNotAbleToSend}
	}
	if spec.LocalBalanceMsat < add.AmountMsat {
		return hc, &RejectError{Reason: ChannelNotAbleToSend}
	}
	if add.CltvExpiry <= blockHeight+CltvSafetyDelta {
		return hc, &RejectError{Reason: ChannelNotAbleToSend}
	}

	out := hc.clone()
	out.NextLocalUpdates = append(out.NextLocalUpdates, add)
	return out, nil
}

// AddRemote is receiveAdd (spec.md §4.3): validate a peer-originated
// HTLC against the projected nextRemoteSpec and, on success, append it
// to NextRemoteUpdates.
func (hc HostedCommits) AddRemote(add hostedwire.AddHtlc) (HostedCommits, error) {
	spec, err := hc.NextRemoteSpec()
	if err != nil {
		return hc, NewTransitionError(hc.RemoteInfo.ChannelID(), err.Error())
	}

	if add.AmountMsat < hc.LastCrossSignedState.HtlcMinimumMsat {
		return hc, NewTransitionError(hc.RemoteInfo.ChannelID(), "remote add below htlcMinimumMsat")
	}
	projectedInFlight := spec.InFlightMsat() + add.AmountMsat
	if projectedInFlight > hc.LastCrossSignedState.MaxHtlcValueInFlightMsat {
		return hc, NewTransitionError(hc.RemoteInfo.ChannelID(), "remote add exceeds maxHtlcValueInFlightMsat")
	}
	if len(spec.IncomingHtlcs)+len(spec.OutgoingHtlcs)+1 > int(hc.LastCrossSignedState.MaxAcceptedHtlcs) {
		return hc, NewTransitionError(hc.RemoteInfo.ChannelID(), "remote add exceeds maxAcceptedHtlcs")
	}
	if spec.RemoteBalanceMsat < add.AmountMsat {
		return hc, NewTransitionError(hc.RemoteInfo.ChannelID(), "remote add exceeds remote balance")
	}

	out := hc.clone()
	out.NextRemoteUpdates = append(out.NextRemoteUpdates, add)
	return out, nil
}

// findIncoming looks for id among spec.IncomingHtlcs.
func findIncoming(spec HtlcSpec, id uint64) (hostedwire.AddHtlc, bool) {
	for _, h := range spec.IncomingHtlcs {
		if h.ID == id {
			return h, true
		}
	}
	return hostedwire.AddHtlc{}, false
}

// findOutgoing looks for id among spec.OutgoingHtlcs.
func findOutgoing(spec HtlcSpec, id uint64) (hostedwire.AddHtlc, bool) {
	for _, h := range spec.OutgoingHtlcs {
		if h.ID == id {
			return h, true
		}
	}
	return hostedwire.AddHtlc{}, false
}

// SettleLocal is CMD_FULFILL_HTLC: we reveal the preimage for an
// incoming HTLC. Permitted even while the channel is in error state
// (spec.md §4.3: "preimage must always be sendable"). The HTLC must
// already be part of lastCrossSignedState: fulfilling one that only
// exists in nextRemoteUpdates would fold out of order the next time
// nextLocalUnsignedLCSS applies nextLocalUpdates before nextRemoteUpdates
// (spec.md §4.2, "apply nextLocalUpdates ++ nextRemoteUpdates").
func (hc HostedCommits) SettleLocal(id uint64, preimage [32]byte) (HostedCommits, hostedwire.AddHtlc, error) {
	spec := hc.LocalSpec()
	add, ok := findIncoming(spec, id)
	if !ok {
		return hc, hostedwire.AddHtlc{}, &RejectError{Reason: ChannelNotAbleToSend}
	}

	fulfill := hostedwire.UpdateFulfillHtlc{
		ChannelID: hc.RemoteInfo.ChannelID(),
		ID:        id,
		Preimage:  lntypes.Preimage(preimage),
	}

	out := hc.clone()
	out.NextLocalUpdates = append(out.NextLocalUpdates, fulfill)
	return out, add, nil
}

// FailLocal is CMD_FAIL_HTLC/CMD_FAIL_MALFORMED_HTLC: we decline an
// incoming HTLC. Requires the channel to be error-free (spec.md §4.3).
func (hc HostedCommits) FailLocal(fail hostedwire.Message, id uint64) (HostedCommits, hostedwire.AddHtlc, error) {
	if hc.IsError() {
		return hc, hostedwire.AddHtlc{}, &RejectError{Reason: ChannelNotAbleToSend}
	}

	spec := hc.LocalSpec()
	add, ok := findIncoming(spec, id)
	if !ok {
		return hc, hostedwire.AddHtlc{}, &RejectError{Reason: ChannelNotAbleToSend}
	}

	out := hc.clone()
	out.NextLocalUpdates = append(out.NextLocalUpdates, fail)
	return out, add, nil
}

// disconnectAndSleepErr is returned by ReceiveFail when the peer is
// racing our not-yet-signed add. It carries no TransitionError: the
// driver's response is a disconnect, not a suspend.
type disconnectAndSleepErr struct{}

func (disconnectAndSleepErr) Error() string { return "peer is fail-racing an unsigned add" }

// IsDisconnectAndSleep reports whether err is the fail-race signal
// ReceiveFail raises (spec.md §4.3).
func IsDisconnectAndSleep(err error) bool {
	_, ok := err.(disconnectAndSleepErr)
	return ok
}

// ReceiveFulfill is the peer's UpdateFulfillHtlc resolving one of our
// outgoing HTLCs. Accepted in both Open and Sleeping, and even while the
// channel is in error (spec.md §4.3): in that case the id is recorded in
// PostErrorOutgoingResolvedIds to suppress double-handling.
func (hc HostedCommits) ReceiveFulfill(fulfill hostedwire.UpdateFulfillHtlc) (HostedCommits, hostedwire.AddHtlc, error) {
	add, ok := findOutgoing(hc.LocalSpec(), fulfill.ID)
	if !ok {
		return hc, hostedwire.AddHtlc{}, NewTransitionError(hc.RemoteInfo.ChannelID(), "fulfill references unknown outgoing htlc")
	}

	out := hc.clone()
	out.NextRemoteUpdates = append(out.NextRemoteUpdates, fulfill)
	if hc.IsError() {
		if _, already := hc.PostErrorOutgoingResolvedIds[fulfill.ID]; !already {
			out.PostErrorOutgoingResolvedIds[fulfill.ID] = struct{}{}
		}
	}
	return out, add, nil
}

// ReceiveFail is the peer's UpdateFail/UpdateFailMalformed failing one
// of our outgoing HTLCs (spec.md §4.3).
func (hc HostedCommits) ReceiveFail(msg hostedwire.Message, id uint64) (HostedCommits, hostedwire.AddHtlc, error) {
	if add, ok := findOutgoing(hc.LocalSpec(), id); ok {
		out := hc.clone()
		out.NextRemoteUpdates = append(out.NextRemoteUpdates, msg)
		return out, add, nil
	}

	nextSpec, err := hc.NextLocalSpec()
	if err != nil {
		return hc, hostedwire.AddHtlc{}, NewTransitionError(hc.RemoteInfo.ChannelID(), err.Error())
	}
	if _, ok := findOutgoing(nextSpec, id); ok {
		return hc, hostedwire.AddHtlc{}, disconnectAndSleepErr{}
	}

	if _, ok := hc.PostErrorOutgoingResolvedIds[id]; ok {
		return hc, hostedwire.AddHtlc{}, NewTransitionError(hc.RemoteInfo.ChannelID(), "fail references an htlc already resolved after error")
	}

	return hc, hostedwire.AddHtlc{}, NewTransitionError(hc.RemoteInfo.ChannelID(), "fail references unknown outgoing htlc")
}

// WithPostErrorOutgoingResolved marks id resolved without touching
// anything else, the bookkeeping half of the expiry sweep (spec.md
// §4.4: "mark all expired ids in postErrorOutgoingResolvedIds").
func (hc HostedCommits) WithPostErrorOutgoingResolved(id uint64) HostedCommits {
	out := hc.clone()
	out.PostErrorOutgoingResolvedIds[id] = struct{}{}
	return out
}

// WithLocalError sets localError unless it is already set, the pure
// half of localSuspend (spec.md §4.8); persisting and sending the Fail
// is the driver's job.
func (hc HostedCommits) WithLocalError(fail hostedwire.Fail) HostedCommits {
	if hc.LocalError.IsSome() {
		return hc
	}
	out := hc.clone()
	out.LocalError = fn.Some(fail)
	return out
}

// WithRemoteError sets remoteError (spec.md §4.8: receiving a peer Fail
// always sets it, even if already set).
func (hc HostedCommits) WithRemoteError(fail hostedwire.Fail) HostedCommits {
	out := hc.clone()
	out.RemoteError = fn.Some(fail)
	return out
}

// WithChannelUpdate stores the peer's most recent gossip ChannelUpdate,
// consumed opaquely (spec.md §6).
func (hc HostedCommits) WithChannelUpdate(cu hostedwire.ChannelUpdate) HostedCommits {
	out := hc.clone()
	out.UpdateOpt = fn.Some(cu)
	return out
}

// WithResizeProposal records a pending resize (spec.md §4.7).
func (hc HostedCommits) WithResizeProposal(rc hostedwire.ResizeChannel) HostedCommits {
	out := hc.clone()
	out.ResizeProposal = fn.Some(rc)
	return out
}

// WithOverrideProposal records a pending override (spec.md §4.7).
func (hc HostedCommits) WithOverrideProposal(so hostedwire.StateOverride) HostedCommits {
	out := hc.clone()
	out.OverrideProposal = fn.Some(so)
	return out
}

// ClearProposals drops both the resize and override proposals, the
// state after either is folded into a newly promoted LCSS.
func (hc HostedCommits) ClearProposals() HostedCommits {
	out := hc.clone()
	out.ResizeProposal = fn.None[hostedwire.ResizeChannel]()
	out.OverrideProposal = fn.None[hostedwire.StateOverride]()
	return out
}

// Promote installs newLCSS as the last cross-signed state and clears
// both pending-update queues, the atomic step at the end of a
// successful signing handshake (spec.md §4.2).
func (hc HostedCommits) Promote(newLCSS lcss.LCSS) HostedCommits {
	return hc.PromoteWithLeftover(newLCSS, nil)
}

// PromoteWithLeftover installs newLCSS and leaves leftoverLocal as the
// still-unacknowledged tail of nextLocalUpdates, the resync-engine
// variant of Promote used when only a prefix of our pending updates was
// actually folded into newLCSS (spec.md §4.6 step 5).
func (hc HostedCommits) PromoteWithLeftover(newLCSS lcss.LCSS, leftoverLocal []hostedwire.Message) HostedCommits {
	out := hc.clone()
	out.LastCrossSignedState = newLCSS
	out.NextLocalUpdates = append([]hostedwire.Message{}, leftoverLocal...)
	out.NextRemoteUpdates = nil
	return out
}

// DropNextRemoteUpdates clears nextRemoteUpdates without touching
// anything else, the "peer must resend" half of the even-or-ahead resync
// path (spec.md §4.6 step 4).
func (hc HostedCommits) DropNextRemoteUpdates() HostedCommits {
	out := hc.clone()
	out.NextRemoteUpdates = nil
	return out
}

// Reset replaces hc wholesale with a freshly restored record, the
// "adopt the peer's view" fallback used both by the WaitForAccept
// restore path and the resync engine's too-far-behind path.
func Reset(remoteInfo RemoteInfo, adopted lcss.LCSS) HostedCommits {
	return HostedCommits{
		RemoteInfo:                   remoteInfo,
		LastCrossSignedState:         adopted,
		PostErrorOutgoingResolvedIds: make(map[uint64]struct{}),
	}
}
