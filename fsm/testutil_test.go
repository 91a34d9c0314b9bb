package fsm

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/env"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
	"github.com/rorp/immortan/store"
)

// testSigner wraps a raw private key as an env.Signer, the test double
// for the wallet's node key.
type testSigner struct {
	priv *btcec.PrivateKey
}

func (s testSigner) SignHash(hash [32]byte) hostedwire.Sig64 {
	return hostedwire.SignCompact(s.priv, hash)
}

func (s testSigner) PubKey() *btcec.PublicKey {
	return s.priv.PubKey()
}

// fakeBlocks is a fixed, settable env.BlockSource.
type fakeBlocks struct {
	day    uint32
	height uint32
}

func (b *fakeBlocks) CurrentBlockDay() uint32   { return b.day }
func (b *fakeBlocks) CurrentBlockCount() uint32 { return b.height }

// fakeSender records every Send call in order.
type fakeSender struct {
	sent [][]hostedwire.Message
}

func (s *fakeSender) Send(_ lnwire.ChannelID, msgs []hostedwire.Message) error {
	s.sent = append(s.sent, msgs)
	return nil
}

func (s *fakeSender) last() []hostedwire.Message {
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}

// fakeListener records every callback Driver fires.
type fakeListener struct {
	added             []hostedwire.AddHtlc
	fulfilled         []hostedwire.AddHtlc
	rejectedLocally   []hostedwire.AddHtlc
	rejectedReasons   []commits.AddRejectReason
	rejectedRemotely  []hostedwire.AddHtlc
	notifiedResolvers int
	transitions       []commits.ChannelState
}

func (l *fakeListener) AddReceived(_ lnwire.ChannelID, add hostedwire.AddHtlc) {
	l.added = append(l.added, add)
}

func (l *fakeListener) FulfillReceived(_ lnwire.ChannelID, add hostedwire.AddHtlc, _ [32]byte) {
	l.fulfilled = append(l.fulfilled, add)
}

func (l *fakeListener) AddRejectedLocally(_ lnwire.ChannelID, add hostedwire.AddHtlc, reason commits.AddRejectReason) {
	l.rejectedLocally = append(l.rejectedLocally, add)
	l.rejectedReasons = append(l.rejectedReasons, reason)
}

func (l *fakeListener) AddRejectedRemotely(_ lnwire.ChannelID, add hostedwire.AddHtlc) {
	l.rejectedRemotely = append(l.rejectedRemotely, add)
}

func (l *fakeListener) NotifyResolvers(_ lnwire.ChannelID) {
	l.notifiedResolvers++
}

func (l *fakeListener) StateTransition(_ lnwire.ChannelID, _ commits.ChannelState, new commits.ChannelState) {
	l.transitions = append(l.transitions, new)
}

var _ Listener = &fakeListener{}

// fakeChecker is a rescue.Checker stub returning a fixed preimage map.
type fakeChecker struct {
	found map[lntypes.Hash]lntypes.Preimage
	err   error
}

func (c *fakeChecker) PreimageCheck(hashes []lntypes.Hash) (map[lntypes.Hash]lntypes.Preimage, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[lntypes.Hash]lntypes.Preimage)
	for _, h := range hashes {
		if p, ok := c.found[h]; ok {
			out[h] = p
		}
	}
	return out, nil
}

// testHarness bundles one client-side Driver with the host key needed to
// forge host-originated messages by hand.
type testHarness struct {
	t *testing.T

	clientPriv *btcec.PrivateKey
	hostPriv   *btcec.PrivateKey

	blocks   *fakeBlocks
	sender   *fakeSender
	listener *fakeListener
	checker  *fakeChecker
	store    store.Store

	remoteInfo commits.RemoteInfo
	driver     *Driver
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	clientPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("client key: %v", err)
	}
	hostPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("host key: %v", err)
	}
	nodeSpecific, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("node specific key: %v", err)
	}

	h := &testHarness{
		t:          t,
		clientPriv: clientPriv,
		hostPriv:   hostPriv,
		blocks:     &fakeBlocks{day: 100, height: 10_000},
		sender:     &fakeSender{},
		listener:   &fakeListener{},
		checker:    &fakeChecker{},
		store:      store.NewMemStore(),
		remoteInfo: commits.RemoteInfo{
			NodeID:             hostPriv.PubKey(),
			NodeSpecificPubKey: nodeSpecific.PubKey(),
		},
	}

	e := envFor(h)
	d, err := NewDriver(e, h.store, h.sender, h.checker, h.listener, h.remoteInfo, [32]byte{0xAA}, []byte{0x00, 0x14})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	h.driver = d
	return h
}

func envFor(h *testHarness) env.Env {
	return env.Env{
		Signer: testSigner{priv: h.clientPriv},
		Blocks: h.blocks,
		Bounds: env.DefaultInitBounds,
	}
}

// hostSign signs hash with the host's key, the test's stand-in for the
// host side of every handshake.
func (h *testHarness) hostSign(hash [32]byte) hostedwire.Sig64 {
	return hostedwire.SignCompact(h.hostPriv, hash)
}

// openChannel drives the harness's Driver from WaitForInit through a full
// CMD_SOCKET_ONLINE handshake to Open, the common setup every scenario
// beyond S1 itself builds on. It then clears the sends recorded during
// the handshake, so a scenario's sender assertions see only its own.
func (h *testHarness) openChannel(init hostedwire.InitHostedChannel) {
	h.t.Helper()

	if err := h.driver.Process(CmdSocketOnline{}); err != nil {
		h.t.Fatalf("CmdSocketOnline: %v", err)
	}
	if h.driver.State() != commits.WaitForAccept {
		h.t.Fatalf("expected WaitForAccept, got %s", h.driver.State())
	}

	if err := h.driver.Process(Received{Msg: init}); err != nil {
		h.t.Fatalf("InitHostedChannel: %v", err)
	}
	if h.driver.State() != commits.WaitForStateUpdate {
		h.t.Fatalf("expected WaitForStateUpdate, got %s", h.driver.State())
	}

	clientView := h.driver.Commits().LastCrossSignedState
	hostView := clientView.Reverse().WithLocalSigOfRemoteFunc(h.hostSign)

	reply := hostedwire.StateUpdate{
		BlockDay:             hostView.BlockDay,
		LocalUpdates:         hostView.LocalUpdates,
		RemoteUpdates:        hostView.RemoteUpdates,
		LocalSigOfRemoteLCSS: hostView.LocalSigOfRemote,
	}
	if err := h.driver.Process(Received{Msg: reply}); err != nil {
		h.t.Fatalf("initial StateUpdate reply: %v", err)
	}
	if h.driver.State() != commits.Open {
		h.t.Fatalf("expected Open, got %s", h.driver.State())
	}
	h.sender.sent = nil
}

// hostCountersign takes the client's currently pending unsigned proposal
// (the LCSS most recently sent via signHandshake) and returns the
// StateUpdate a correctly behaving host would reply with.
func (h *testHarness) hostCountersign(pending lcss.LCSS) hostedwire.StateUpdate {
	h.t.Helper()
	hostView := pending.Reverse().WithLocalSigOfRemoteFunc(h.hostSign)
	return hostedwire.StateUpdate{
		BlockDay:             hostView.BlockDay,
		LocalUpdates:         hostView.LocalUpdates,
		RemoteUpdates:        hostView.RemoteUpdates,
		LocalSigOfRemoteLCSS: hostView.LocalSigOfRemote,
	}
}

// sampleInit leaves the host holding 300_000_000 msat of the capacity so
// both add directions have room to exercise against.
func sampleInit() hostedwire.InitHostedChannel {
	return hostedwire.InitHostedChannel{
		MaxHtlcValueInFlightMsat: 500_000_000,
		HtlcMinimumMsat:          1_000,
		MaxAcceptedHtlcs:         30,
		ChannelCapacityMsat:      1_000_000_000,
		InitialClientBalanceMsat: 700_000_000,
	}
}
