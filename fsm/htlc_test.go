package fsm

import (
	"testing"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
)

// TestAddHtlcThenSign is S2: sendAdd appends the HTLC, CMD_SIGN proposes
// it, and the host's countersigned reply promotes it into
// lastCrossSignedState.
func TestAddHtlcThenSign(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	cmd := CmdAddHtlc{
		AmountMsat: 50_000,
		CltvExpiry: h.blocks.height + 1_000,
	}
	if err := h.driver.Process(cmd); err != nil {
		t.Fatalf("CmdAddHtlc: %v", err)
	}

	if len(h.sender.sent) != 2 {
		t.Fatalf("expected an AddHtlc send and a StateUpdate send, got %d sends", len(h.sender.sent))
	}
	if _, ok := h.sender.sent[0][0].(hostedwire.AddHtlc); !ok {
		t.Fatal("expected the first send to be the AddHtlc")
	}
	if _, ok := h.sender.sent[1][0].(hostedwire.StateUpdate); !ok {
		t.Fatal("expected CMD_SIGN to follow, sending a StateUpdate")
	}
	if h.driver.pendingUnsigned == nil {
		t.Fatal("expected a pendingUnsigned proposal after signHandshake")
	}

	reply := h.hostCountersign(*h.driver.pendingUnsigned)
	if err := h.driver.Process(Received{Msg: reply}); err != nil {
		t.Fatalf("StateUpdate reply: %v", err)
	}

	hc := h.driver.Commits()
	if len(hc.NextLocalUpdates) != 0 {
		t.Fatal("expected the pending add to be cleared after promotion")
	}
	if len(hc.LastCrossSignedState.OutgoingHtlcs) != 1 {
		t.Fatalf("expected 1 outgoing htlc in the promoted state, got %d", len(hc.LastCrossSignedState.OutgoingHtlcs))
	}
	if h.listener.notifiedResolvers == 0 {
		t.Fatal("expected NotifyResolvers to fire after a successful promotion")
	}
}

// TestAddHtlcRejectsBelowMinimum covers sendAdd's reject path: the driver
// never queues the add and reports addRejectedLocally instead of
// returning a protocol error.
func TestAddHtlcRejectsBelowMinimum(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	cmd := CmdAddHtlc{AmountMsat: 1, CltvExpiry: h.blocks.height + 1_000}
	err := h.driver.Process(cmd)
	if _, ok := err.(*commits.RejectError); !ok {
		t.Fatalf("expected a RejectError, got %v", err)
	}
	if len(h.listener.rejectedLocally) != 1 {
		t.Fatalf("expected 1 addRejectedLocally callback, got %d", len(h.listener.rejectedLocally))
	}
	if len(h.sender.sent) != 0 {
		t.Fatal("a rejected add must never be sent")
	}
}

// TestFulfillPermittedWhileInError is S3: CMD_FULFILL_HTLC stays
// available even after localSuspend, but CMD_FAIL_HTLC does not.
func TestFulfillPermittedWhileInError(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	incoming := hostedwire.AddHtlc{
		ChannelID:  h.driver.channelID,
		ID:         7,
		AmountMsat: 40_000,
		CltvExpiry: h.blocks.height + 1_000,
	}
	if err := h.driver.Process(Received{Msg: incoming}); err != nil {
		t.Fatalf("receiving the incoming add: %v", err)
	}
	if len(h.listener.added) != 1 {
		t.Fatal("expected AddReceived to fire for the incoming htlc")
	}

	// CMD_FULFILL_HTLC only targets HTLCs already folded into
	// lastCrossSignedState, so the incoming add must be cross-signed once
	// before it is eligible to settle.
	if err := h.driver.Process(CmdSign{}); err != nil {
		t.Fatalf("CmdSign: %v", err)
	}
	reply := h.hostCountersign(*h.driver.pendingUnsigned)
	if err := h.driver.Process(Received{Msg: reply}); err != nil {
		t.Fatalf("StateUpdate reply: %v", err)
	}

	if err := h.driver.Process(CmdLocalSuspend{Code: hostedwire.ErrHostedManualSuspend}); err != nil {
		t.Fatalf("CmdLocalSuspend: %v", err)
	}
	if !h.driver.Commits().LocalError.IsSome() {
		t.Fatal("expected the channel to be in local error")
	}

	var preimage [32]byte
	preimage[0] = 0x42
	if err := h.driver.Process(CmdFulfillHtlc{ID: 7, Preimage: preimage}); err != nil {
		t.Fatalf("expected fulfill to succeed even while suspended, got %v", err)
	}
	found := false
	for _, m := range h.driver.Commits().NextLocalUpdates {
		if f, ok := m.(hostedwire.UpdateFulfillHtlc); ok && f.ID == 7 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the fulfill to be queued in NextLocalUpdates")
	}

	err := h.driver.Process(CmdFailHtlc{ID: 7, Reason: []byte("nope")})
	if _, ok := err.(*commits.RejectError); !ok {
		t.Fatalf("expected CMD_FAIL_HTLC to be rejected while suspended, got %v", err)
	}
}

// TestReceiveFailOnUnsignedAddDisconnects exercises the fail-race
// protection: the host failing an add we have not yet signed must
// disconnect us rather than silently desyncing.
func TestReceiveFailOnUnsignedAddDisconnects(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	cmd := CmdAddHtlc{AmountMsat: 50_000, CltvExpiry: h.blocks.height + 1_000}
	if err := h.driver.Process(cmd); err != nil {
		t.Fatalf("CmdAddHtlc: %v", err)
	}

	err := h.driver.Process(Received{Msg: hostedwire.UpdateFailHtlc{ID: 0, Reason: []byte("race")}})
	if err != ErrDisconnect {
		t.Fatalf("expected ErrDisconnect, got %v", err)
	}
	if h.driver.State() != commits.Sleeping {
		t.Fatalf("expected Sleeping after the disconnect signal, got %s", h.driver.State())
	}
}
