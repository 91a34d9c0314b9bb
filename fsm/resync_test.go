package fsm

import (
	"testing"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

// TestResyncEvenResendsPendingUpdates covers attemptInitResync's
// even-or-ahead branch: on reconnect, if the host reports exactly what
// we already hold, we simply resend our view and reopen.
func TestResyncEvenResendsPendingUpdates(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	current := h.driver.Commits().LastCrossSignedState
	if err := h.driver.Process(CmdSocketOffline{}); err != nil {
		t.Fatalf("CmdSocketOffline: %v", err)
	}

	remote := current.Reverse()
	if err := h.driver.Process(Received{Msg: remote}); err != nil {
		t.Fatalf("resync LCSS: %v", err)
	}
	if h.driver.State() != commits.Open {
		t.Fatalf("expected Open after an even resync, got %s", h.driver.State())
	}
	if _, ok := h.sender.last()[0].(lcss.LCSS); !ok {
		t.Fatal("expected our own LCSS to be resent")
	}
}

// TestResyncBehindByOneReconstructsState is S4: the driver restarts
// having forgotten the in-memory pendingUnsigned proposal for an add the
// host had in fact already countersigned, and attemptInitResync must
// reconstruct and promote the exact state the host holds rather than
// suspending or losing the add.
func TestResyncBehindByOneReconstructsState(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	cmd := CmdAddHtlc{AmountMsat: 50_000, CltvExpiry: h.blocks.height + 1_000}
	if err := h.driver.Process(cmd); err != nil {
		t.Fatalf("CmdAddHtlc: %v", err)
	}
	if h.driver.pendingUnsigned == nil {
		t.Fatal("expected a pendingUnsigned proposal")
	}

	// The host fully countersigned our proposal, but the reply never
	// reached us: capture the host's own cross-signed copy of that state,
	// which it sends on reconnect, before the process "restarts" and
	// forgets pendingUnsigned.
	hostLCSS := h.driver.pendingUnsigned.Reverse().WithLocalSigOfRemoteFunc(h.hostSign)

	restarted, err := NewDriver(envFor(h), h.store, h.sender, h.checker, h.listener, h.remoteInfo, h.driver.chainHash, h.driver.refundScriptPubKey)
	if err != nil {
		t.Fatalf("reloading the driver: %v", err)
	}
	if restarted.State() != commits.Sleeping {
		t.Fatalf("expected a reloaded driver with a stored record to start Sleeping, got %s", restarted.State())
	}

	if err := restarted.Process(Received{Msg: hostLCSS}); err != nil {
		t.Fatalf("resync LCSS: %v", err)
	}
	if restarted.State() != commits.Open {
		t.Fatalf("expected Open after reconstructing the behind-by-one state, got %s", restarted.State())
	}

	hc := restarted.Commits()
	if len(hc.NextLocalUpdates) != 0 {
		t.Fatal("expected no leftover pending updates once fully acked")
	}
	if len(hc.LastCrossSignedState.OutgoingHtlcs) != 1 {
		t.Fatalf("expected the reconstructed state to carry 1 outgoing htlc, got %d", len(hc.LastCrossSignedState.OutgoingHtlcs))
	}
	if hc.LastCrossSignedState.LocalUpdates != 1 {
		t.Fatalf("expected localUpdates to have advanced to 1, got %d", hc.LastCrossSignedState.LocalUpdates)
	}
}

// TestResyncTooFarBehindAdoptsRemoteView covers the fallback when the
// host's counters make reconstruction impossible: we adopt the host's
// view wholesale and report any outgoing HTLC that did not survive.
func TestResyncTooFarBehindAdoptsRemoteView(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	first := CmdAddHtlc{AmountMsat: 50_000, CltvExpiry: h.blocks.height + 1_000}
	if err := h.driver.Process(first); err != nil {
		t.Fatalf("first CmdAddHtlc: %v", err)
	}
	reply := h.hostCountersign(*h.driver.pendingUnsigned)
	if err := h.driver.Process(Received{Msg: reply}); err != nil {
		t.Fatalf("promoting the first add: %v", err)
	}
	if len(h.driver.Commits().LastCrossSignedState.OutgoingHtlcs) != 1 {
		t.Fatal("expected the first add to be promoted before disconnecting")
	}

	second := CmdAddHtlc{AmountMsat: 30_000, CltvExpiry: h.blocks.height + 1_000}
	if err := h.driver.Process(second); err != nil {
		t.Fatalf("second CmdAddHtlc: %v", err)
	}

	if err := h.driver.Process(CmdSocketOffline{}); err != nil {
		t.Fatalf("CmdSocketOffline: %v", err)
	}

	// The host then failed the first add and both sides signed that
	// state, but neither the fail nor the new state reached us: the host
	// is ahead by a remote update we never saw, so there is nothing in
	// nextRemoteUpdates to reconstruct its state from.
	ours := h.driver.Commits().LastCrossSignedState
	hostAhead, err := lcss.NextLocalUnsignedLCSS(ours, nil, []hostedwire.Message{hostedwire.UpdateFailHtlc{ID: 0}}, ours.BlockDay)
	if err != nil {
		t.Fatalf("building the host's state: %v", err)
	}
	hostAhead = hostAhead.WithLocalSigOfRemoteFunc(testSigner{priv: h.clientPriv}.SignHash)
	remote := hostAhead.Reverse().WithLocalSigOfRemoteFunc(h.hostSign)
	if err := h.driver.Process(Received{Msg: remote}); err != nil {
		t.Fatalf("resync LCSS: %v", err)
	}
	if h.driver.State() != commits.Open {
		t.Fatalf("expected Open after adopting the host's view, got %s", h.driver.State())
	}
	if len(h.driver.Commits().LastCrossSignedState.OutgoingHtlcs) != 0 {
		t.Fatal("expected the adopted state to match the host's view without the failed add")
	}
	if len(h.listener.rejectedLocally) != 1 {
		t.Fatalf("expected the lost first add to be reported, got %d rejections", len(h.listener.rejectedLocally))
	}
}
