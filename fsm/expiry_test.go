package fsm

import (
	"testing"

	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/rorp/immortan/hostedwire"
)

// TestExpiredOutgoingWithPreimageOnChainIsFulfilled is S6: an outgoing
// HTLC expires without the host ever fulfilling or failing it, but the
// rescue checker reports the preimage showed up on chain, so the sweep
// resolves it as fulfilled instead of as lost.
func TestExpiredOutgoingWithPreimageOnChainIsFulfilled(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	var hash lntypes.Hash
	hash[0] = 0x7

	cmd := CmdAddHtlc{
		AmountMsat:  50_000,
		PaymentHash: hash,
		CltvExpiry:  h.blocks.height + 10,
	}
	if err := h.driver.Process(cmd); err != nil {
		t.Fatalf("CmdAddHtlc: %v", err)
	}
	reply := h.hostCountersign(*h.driver.pendingUnsigned)
	if err := h.driver.Process(Received{Msg: reply}); err != nil {
		t.Fatalf("StateUpdate reply: %v", err)
	}
	if len(h.driver.Commits().LastCrossSignedState.OutgoingHtlcs) != 1 {
		t.Fatal("expected the add to be promoted before expiry")
	}

	var preimage lntypes.Preimage
	preimage[0] = 0x99
	h.checker.found = map[lntypes.Hash]lntypes.Preimage{hash: preimage}

	if err := h.driver.Process(BlockTick{Tip: h.blocks.height + 20}); err != nil {
		t.Fatalf("BlockTick: %v", err)
	}

	if len(h.listener.fulfilled) != 1 {
		t.Fatalf("expected the expired outgoing htlc to be reported fulfilled, got %d", len(h.listener.fulfilled))
	}
	if len(h.listener.rejectedLocally) != 0 {
		t.Fatal("a recovered preimage must not also report a local rejection")
	}
	if !h.driver.Commits().LocalError.IsSome() {
		t.Fatal("expected the channel to suspend after sweeping an expired outgoing htlc")
	}
	fail := h.driver.Commits().LocalError.UnwrapOr(hostedwire.Fail{})
	if string(fail.Data) != hostedwire.ErrHostedTimedOutOutgoingHtlc {
		t.Fatalf("expected suspend code %s, got %s", hostedwire.ErrHostedTimedOutOutgoingHtlc, fail.Data)
	}
}

// TestExpiredOutgoingWithoutPreimageIsRejectedLocally covers the
// sibling path: no preimage found anywhere, so the htlc is reported
// lost instead of fulfilled.
func TestExpiredOutgoingWithoutPreimageIsRejectedLocally(t *testing.T) {
	h := newTestHarness(t)
	h.openChannel(sampleInit())

	var hash lntypes.Hash
	hash[0] = 0x7

	cmd := CmdAddHtlc{
		AmountMsat:  50_000,
		PaymentHash: hash,
		CltvExpiry:  h.blocks.height + 10,
	}
	if err := h.driver.Process(cmd); err != nil {
		t.Fatalf("CmdAddHtlc: %v", err)
	}
	reply := h.hostCountersign(*h.driver.pendingUnsigned)
	if err := h.driver.Process(Received{Msg: reply}); err != nil {
		t.Fatalf("StateUpdate reply: %v", err)
	}

	if err := h.driver.Process(BlockTick{Tip: h.blocks.height + 20}); err != nil {
		t.Fatalf("BlockTick: %v", err)
	}

	if len(h.listener.fulfilled) != 0 {
		t.Fatal("no preimage was ever found, nothing should be reported fulfilled")
	}
	if len(h.listener.rejectedLocally) != 1 {
		t.Fatalf("expected the lost outgoing htlc to be reported, got %d", len(h.listener.rejectedLocally))
	}
}
