package commits

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	fn "github.com/lightningnetwork/lnd/fn/v2"

	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

func sampleHostedCommits(t *testing.T) HostedCommits {
	t.Helper()
	nodeID, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("node id key: %v", err)
	}
	nodeSpecific, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("node specific key: %v", err)
	}

	l := lcss.LCSS{
		ChannelCapacityMsat:      1_000_000_000,
		InitialClientBalanceMsat: 1_000_000_000,
		MaxHtlcValueInFlightMsat: 500_000_000,
		HtlcMinimumMsat:          1000,
		MaxAcceptedHtlcs:         30,
		BlockDay:                100,
		LocalBalanceMsat:         1_000_000_000,
		RemoteBalanceMsat:        0,
	}

	return HostedCommits{
		RemoteInfo: RemoteInfo{
			NodeID:             nodeID.PubKey(),
			NodeSpecificPubKey: nodeSpecific.PubKey(),
		},
		LastCrossSignedState:         l,
		PostErrorOutgoingResolvedIds: map[uint64]struct{}{},
		UpdateOpt:                    fn.None[hostedwire.ChannelUpdate](),
		LocalError:                   fn.None[hostedwire.Fail](),
		RemoteError:                  fn.None[hostedwire.Fail](),
		ResizeProposal:               fn.None[hostedwire.ResizeChannel](),
		OverrideProposal:             fn.None[hostedwire.StateOverride](),
	}
}

func TestAddLocalAcceptsValidAdd(t *testing.T) {
	hc := sampleHostedCommits(t)
	add := hostedwire.AddHtlc{ID: 1, AmountMsat: 50_000, CltvExpiry: 1000}

	next, err := hc.AddLocal(add, 100)
	if err != nil {
		t.Fatalf("expected add to be accepted, got %v", err)
	}
	if len(next.NextLocalUpdates) != 1 {
		t.Fatal("expected the add to be appended to NextLocalUpdates")
	}
	if len(hc.NextLocalUpdates) != 0 {
		t.Fatal("AddLocal must not mutate the receiver")
	}
}

func TestAddLocalRejectsBelowMinimum(t *testing.T) {
	hc := sampleHostedCommits(t)
	add := hostedwire.AddHtlc{ID: 1, AmountMsat: 1, CltvExpiry: 1000}

	_, err := hc.AddLocal(add, 100)
	if _, ok := err.(*RejectError); !ok {
		t.Fatalf("expected a RejectError, got %v", err)
	}
}

func TestAddLocalRejectsInsufficientBalance(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.LocalBalanceMsat = 100_000
	hc.LastCrossSignedState.RemoteBalanceMsat = hc.LastCrossSignedState.ChannelCapacityMsat - 100_000
	add := hostedwire.AddHtlc{ID: 1, AmountMsat: hc.LastCrossSignedState.LocalBalanceMsat + 1, CltvExpiry: 1000}

	_, err := hc.AddLocal(add, 100)
	if _, ok := err.(*RejectError); !ok {
		t.Fatalf("expected a RejectError, got %v", err)
	}
}

func TestAddLocalRejectsWhenInError(t *testing.T) {
	hc := sampleHostedCommits(t).WithLocalError(hostedwire.Fail{})
	add := hostedwire.AddHtlc{ID: 1, AmountMsat: 50_000, CltvExpiry: 1000}

	_, err := hc.AddLocal(add, 100)
	if _, ok := err.(*RejectError); !ok {
		t.Fatalf("expected a RejectError once in error state, got %v", err)
	}
}

func TestAddLocalRejectsCltvTooClose(t *testing.T) {
	hc := sampleHostedCommits(t)
	add := hostedwire.AddHtlc{ID: 1, AmountMsat: 50_000, CltvExpiry: 100 + CltvSafetyDelta}

	_, err := hc.AddLocal(add, 100)
	if _, ok := err.(*RejectError); !ok {
		t.Fatalf("expected a RejectError for insufficient cltv delta, got %v", err)
	}
}

func TestAddRemoteAcceptsValidAdd(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.RemoteBalanceMsat = 200_000
	hc.LastCrossSignedState.LocalBalanceMsat -= 200_000

	add := hostedwire.AddHtlc{ID: 1, AmountMsat: 50_000, CltvExpiry: 1000}
	next, err := hc.AddRemote(add)
	if err != nil {
		t.Fatalf("expected remote add to be accepted, got %v", err)
	}
	if len(next.NextRemoteUpdates) != 1 {
		t.Fatal("expected the add to be appended to NextRemoteUpdates")
	}
}

func TestAddRemoteRejectsInsufficientRemoteBalance(t *testing.T) {
	hc := sampleHostedCommits(t)
	add := hostedwire.AddHtlc{ID: 1, AmountMsat: 50_000, CltvExpiry: 1000}

	_, err := hc.AddRemote(add)
	if _, ok := err.(*TransitionError); !ok {
		t.Fatalf("expected a TransitionError, got %v", err)
	}
}

func TestSettleLocalFulfillsIncomingHtlc(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.RemoteBalanceMsat = 100_000
	hc.LastCrossSignedState.LocalBalanceMsat -= 100_000
	hc.LastCrossSignedState.IncomingHtlcs = []hostedwire.AddHtlc{{ID: 9, AmountMsat: 30_000}}

	var preimage [32]byte
	preimage[0] = 0xAB

	next, add, err := hc.SettleLocal(9, preimage)
	if err != nil {
		t.Fatalf("expected settle to succeed, got %v", err)
	}
	if add.ID != 9 {
		t.Fatal("expected the resolved add to be returned")
	}
	if len(next.NextLocalUpdates) != 1 {
		t.Fatal("expected a fulfill to be appended to NextLocalUpdates")
	}
}

// SettleLocal must work even while the channel is in error (spec.md
// §4.3: "preimage must always be sendable").
func TestSettleLocalWorksWhileInError(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.RemoteBalanceMsat = 100_000
	hc.LastCrossSignedState.LocalBalanceMsat -= 100_000
	hc.LastCrossSignedState.IncomingHtlcs = []hostedwire.AddHtlc{{ID: 9, AmountMsat: 30_000}}
	hc = hc.WithLocalError(hostedwire.Fail{})

	var preimage [32]byte
	if _, _, err := hc.SettleLocal(9, preimage); err != nil {
		t.Fatalf("expected settle to succeed even in error state, got %v", err)
	}
}

func TestFailLocalRejectsWhenInError(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.RemoteBalanceMsat = 100_000
	hc.LastCrossSignedState.LocalBalanceMsat -= 100_000
	hc.LastCrossSignedState.IncomingHtlcs = []hostedwire.AddHtlc{{ID: 9, AmountMsat: 30_000}}
	hc = hc.WithLocalError(hostedwire.Fail{})

	_, _, err := hc.FailLocal(hostedwire.UpdateFailHtlc{ID: 9}, 9)
	if _, ok := err.(*RejectError); !ok {
		t.Fatalf("expected a RejectError once in error state, got %v", err)
	}
}

func TestReceiveFulfillResolvesOutgoingHtlc(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.OutgoingHtlcs = []hostedwire.AddHtlc{{ID: 4, AmountMsat: 20_000}}
	hc.LastCrossSignedState.LocalBalanceMsat -= 20_000

	next, add, err := hc.ReceiveFulfill(hostedwire.UpdateFulfillHtlc{ID: 4})
	if err != nil {
		t.Fatalf("expected fulfill to resolve, got %v", err)
	}
	if add.ID != 4 {
		t.Fatal("expected the resolved add to be returned")
	}
	if len(next.NextRemoteUpdates) != 1 {
		t.Fatal("expected the fulfill to be appended to NextRemoteUpdates")
	}
}

func TestReceiveFulfillRecordsPostErrorResolvedId(t *testing.T) {
	hc := sampleHostedCommits(t)
	hc.LastCrossSignedState.OutgoingHtlcs = []hostedwire.AddHtlc{{ID: 4, AmountMsat: 20_000}}
	hc.LastCrossSignedState.LocalBalanceMsat -= 20_000
	hc = hc.WithLocalError(hostedwire.Fail{})

	next, _, err := hc.ReceiveFulfill(hostedwire.UpdateFulfillHtlc{ID: 4})
	if err != nil {
		t.Fatalf("expected fulfill to resolve even in error state, got %v", err)
	}
	if _, ok := next.PostErrorOutgoingResolvedIds[4]; !ok {
		t.Fatal("expected id 4 to be recorded in PostErrorOutgoingResolvedIds")
	}
}

func TestReceiveFailOnUnsignedAddSignalsDisconnect(t *testing.T) {
	hc := sampleHostedCommits(t)
	add := hostedwire.AddHtlc{ID: 4, AmountMsat: 20_000, CltvExpiry: 1000}
	pending, err := hc.AddLocal(add, 100)
	if err != nil {
		t.Fatalf("setup add failed: %v", err)
	}

	_, _, err = pending.ReceiveFail(hostedwire.UpdateFailHtlc{ID: 4}, 4)
	if !IsDisconnectAndSleep(err) {
		t.Fatalf("expected a disconnect-and-sleep signal, got %v", err)
	}
}

func TestReceiveFailOnUnknownIdIsTransitionError(t *testing.T) {
	hc := sampleHostedCommits(t)
	_, _, err := hc.ReceiveFail(hostedwire.UpdateFailHtlc{ID: 999}, 999)
	if _, ok := err.(*TransitionError); !ok {
		t.Fatalf("expected a TransitionError, got %v", err)
	}
}

func TestWithLocalErrorIsIdempotent(t *testing.T) {
	hc := sampleHostedCommits(t)
	first := hc.WithLocalError(hostedwire.Fail{Data: []byte("first")})
	second := first.WithLocalError(hostedwire.Fail{Data: []byte("second")})

	got, _ := second.LocalError.UnwrapOrErr(nil)
	if string(got.Data) != "first" {
		t.Fatal("WithLocalError must not overwrite an already-set localError")
	}
}

func TestChannelIDIsStableAndShortened(t *testing.T) {
	hc := sampleHostedCommits(t)
	id1 := hc.RemoteInfo.ChannelID()
	id2 := hc.RemoteInfo.ChannelID()
	if id1 != id2 {
		t.Fatal("ChannelID must be deterministic")
	}

	short := hc.RemoteInfo.ShortChannelID()
	if short == 0 {
		t.Fatal("ShortChannelID should not be zero for a real key pair")
	}
}
