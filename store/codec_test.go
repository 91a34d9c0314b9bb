package store

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	fn "github.com/lightningnetwork/lnd/fn/v2"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

func sampleHostedCommitsForCodec(t *testing.T) commits.HostedCommits {
	t.Helper()
	nodeID, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("node id key: %v", err)
	}
	nodeSpecific, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("node specific key: %v", err)
	}

	return commits.HostedCommits{
		RemoteInfo: commits.RemoteInfo{
			NodeID:             nodeID.PubKey(),
			NodeSpecificPubKey: nodeSpecific.PubKey(),
		},
		LastCrossSignedState: lcss.LCSS{
			ChannelCapacityMsat: 1_000_000_000,
			LocalBalanceMsat:    1_000_000_000,
			OutgoingHtlcs:       []hostedwire.AddHtlc{{ID: 1, AmountMsat: 1000}},
		},
		NextLocalUpdates:  []hostedwire.Message{hostedwire.AddHtlc{ID: 2, AmountMsat: 2000}},
		NextRemoteUpdates: []hostedwire.Message{hostedwire.UpdateFulfillHtlc{ID: 3}},
		PostErrorOutgoingResolvedIds: map[uint64]struct{}{7: {}},
		LocalError:        fn.Some(hostedwire.Fail{Data: []byte("oops")}),
		RemoteError:       fn.None[hostedwire.Fail](),
		ResizeProposal:    fn.None[hostedwire.ResizeChannel](),
		OverrideProposal:  fn.None[hostedwire.StateOverride](),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hc := sampleHostedCommitsForCodec(t)

	encoded, err := Encode(hc)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded[0] != recordVersion1 {
		t.Fatal("expected the version byte to be prepended")
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !decoded.RemoteInfo.NodeID.IsEqual(hc.RemoteInfo.NodeID) {
		t.Fatal("remote node id did not round-trip")
	}
	if decoded.LastCrossSignedState.ChannelCapacityMsat != hc.LastCrossSignedState.ChannelCapacityMsat {
		t.Fatal("LCSS did not round-trip")
	}
	if len(decoded.NextLocalUpdates) != 1 {
		t.Fatal("NextLocalUpdates did not round-trip")
	}
	if _, ok := decoded.NextLocalUpdates[0].(hostedwire.AddHtlc); !ok {
		t.Fatal("NextLocalUpdates[0] did not decode to its concrete AddHtlc type")
	}
	if len(decoded.NextRemoteUpdates) != 1 {
		t.Fatal("NextRemoteUpdates did not round-trip")
	}
	if _, ok := decoded.NextRemoteUpdates[0].(hostedwire.UpdateFulfillHtlc); !ok {
		t.Fatal("NextRemoteUpdates[0] did not decode to its concrete UpdateFulfillHtlc type")
	}
	if _, ok := decoded.PostErrorOutgoingResolvedIds[7]; !ok {
		t.Fatal("PostErrorOutgoingResolvedIds did not round-trip")
	}
	if !decoded.LocalError.IsSome() {
		t.Fatal("LocalError did not round-trip")
	}
	if decoded.RemoteError.IsSome() {
		t.Fatal("RemoteError should have round-tripped as None")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := Decode([]byte{0xFF, '{', '}'}); err == nil {
		t.Fatal("expected an error for an unrecognized version byte")
	}
}
