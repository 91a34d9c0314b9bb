// Package fsm implements the hosted-channel state machine: the single-
// threaded per-channel event handler that turns a Change into zero or
// more outbound messages, a persisted HostedCommits, and listener
// callbacks (spec.md §2 item 5, §4.5). It is grounded on
// receiver/receiver.go's command-handler shape, generalized from "one
// method per RPC call" to "one doProcess dispatch over a tagged sum",
// and on receiver/watcher.go's block-tick loop for the expiry sweep.
package fsm

import (
	"errors"
	"sync"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/env"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
	"github.com/rorp/immortan/rescue"
	"github.com/rorp/immortan/store"
)

// Sender is the SEND(msgs) primitive (spec.md §2), defined locally so
// Driver never imports a concrete transport; transport.Sender satisfies
// this structurally.
type Sender interface {
	Send(channelID lnwire.ChannelID, msgs []hostedwire.Message) error
}

// ErrDisconnect is returned by Process to tell the caller to tear down
// the transport connection; it is the Go-level signal for the
// "disconnect and go Sleeping" responses of spec.md §4.2 and §4.3.
var ErrDisconnect = errors.New("fsm: peer must be disconnected")

// Driver owns one hosted channel's event loop. Process is serialized by
// mu, the concurrency model spec.md §5 requires ("a single channel's
// state transitions must be totally ordered").
type Driver struct {
	mu sync.Mutex

	env      env.Env
	store    store.Store
	sender   Sender
	rescue   rescue.Checker
	listener Listener

	remoteInfo         commits.RemoteInfo
	channelID          lnwire.ChannelID
	chainHash          [32]byte
	refundScriptPubKey []byte
	invokeSecret       []byte

	state commits.ChannelState
	hc    commits.HostedCommits

	// pendingUnsigned is the LCSS we most recently signed and sent as a
	// StateUpdate. It lives only in memory and is not persisted: a
	// restarted driver starts with it nil, and the resync on reconnect
	// (attemptInitResync) reconciles whatever the host signed meanwhile.
	pendingUnsigned *lcss.LCSS
}

// NewDriver loads (or initializes) the channel identified by
// remoteInfo and returns a Driver ready to accept CmdSocketOnline.
func NewDriver(
	e env.Env,
	st store.Store,
	sender Sender,
	checker rescue.Checker,
	listener Listener,
	remoteInfo commits.RemoteInfo,
	chainHash [32]byte,
	refundScriptPubKey []byte,
) (*Driver, error) {
	if listener == nil {
		listener = NopListener{}
	}

	d := &Driver{
		env:                e,
		store:              st,
		sender:             sender,
		rescue:             checker,
		listener:           listener,
		remoteInfo:         remoteInfo,
		channelID:          remoteInfo.ChannelID(),
		chainHash:          chainHash,
		refundScriptPubKey: refundScriptPubKey,
	}

	hc, err := st.Get(d.channelID)
	switch {
	case err == nil:
		d.hc = hc
		d.state = commits.Sleeping
	case errors.Is(err, store.ErrNotFound):
		d.hc = commits.Reset(remoteInfo, lcss.LCSS{})
		d.state = commits.WaitForInit
	default:
		return nil, err
	}

	return d, nil
}

// SetInvokeSecret installs the secret InvokeHostedChannel carries on the
// very first contact with a host; nil (the default) is the common case
// of a channel the host already knows.
func (d *Driver) SetInvokeSecret(secret []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invokeSecret = secret
}

// State returns the channel's current state.
func (d *Driver) State() commits.ChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Commits returns a copy of the channel's current HostedCommits.
func (d *Driver) Commits() commits.HostedCommits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hc
}

// Process runs one Change through the state machine (spec.md §2 item 5's
// doProcess(change)). Calls are serialized; exactly one Change is ever
// in flight for a given Driver.
func (d *Driver) Process(c Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch change := c.(type) {
	case CmdSocketOnline:
		return d.onSocketOnline()
	case CmdSocketOffline:
		return d.onSocketOffline()
	case CmdSign:
		return d.signHandshake()
	case CmdAddHtlc:
		return d.onCmdAddHtlc(change)
	case CmdFulfillHtlc:
		return d.onCmdFulfillHtlc(change)
	case CmdFailHtlc:
		return d.onCmdFailHtlc(change)
	case CmdFailMalformedHtlc:
		return d.onCmdFailMalformedHtlc(change)
	case CmdProposeResize:
		return d.onCmdProposeResize(change)
	case CmdAcceptOverride:
		return d.acceptOverride()
	case CmdLocalSuspend:
		return d.localSuspend(change.Code)
	case BlockTick:
		return d.onBlockTick(change.Tip)
	case Received:
		return d.onReceived(change.Msg)
	default:
		return errors.New("fsm: unknown change type")
	}
}

func (d *Driver) setState(next commits.ChannelState) {
	if next == d.state {
		return
	}
	old := d.state
	d.state = next
	log.Debugf("channel %x: %s -> %s", d.channelID, old, next)
	d.listener.StateTransition(d.channelID, old, next)
}

func (d *Driver) persist() error {
	return d.store.Put(d.channelID, d.hc)
}

func (d *Driver) send(msgs ...hostedwire.Message) error {
	return d.sender.Send(d.channelID, msgs)
}

// onSocketOnline implements WaitForInit+CMD_SOCKET_ONLINE and
// Sleeping+CMD_SOCKET_ONLINE (spec.md §4.5).
func (d *Driver) onSocketOnline() error {
	switch d.state {
	case commits.WaitForInit:
		if err := d.send(hostedwire.InvokeHostedChannel{
			ChainHash:          d.chainHash,
			RefundScriptPubKey: d.refundScriptPubKey,
			Secret:             d.invokeSecret,
		}); err != nil {
			return err
		}
		d.setState(commits.WaitForAccept)
		return nil

	case commits.Sleeping:
		if d.hc.LocalError.IsSome() {
			return d.send(d.hc.LocalError.UnwrapOr(hostedwire.Fail{}))
		}
		return d.send(hostedwire.InvokeHostedChannel{
			ChainHash:          d.chainHash,
			RefundScriptPubKey: d.refundScriptPubKey,
			Secret:             d.invokeSecret,
		})

	default:
		return nil
	}
}

// onSocketOffline implements Open+CMD_SOCKET_OFFLINE->Sleeping.
func (d *Driver) onSocketOffline() error {
	if d.state == commits.Open {
		d.setState(commits.Sleeping)
	}
	return nil
}

// onReceived dispatches one peer-originated wire message by concrete
// type, the tagged-sum exhaustive match spec.md §9 calls for.
func (d *Driver) onReceived(msg hostedwire.Message) error {
	switch m := msg.(type) {
	case hostedwire.InitHostedChannel:
		return d.onInitHostedChannel(m)
	case hostedwire.StateUpdate:
		return d.onStateUpdate(m)
	case lcss.LCSS:
		return d.onLastCrossSignedState(m)
	case hostedwire.Fail:
		return d.onRemoteFail(m)
	case hostedwire.StateOverride:
		return d.onStateOverride(m)
	case hostedwire.ResizeChannel:
		return d.onRemoteResizeProposal(m)
	case hostedwire.AddHtlc:
		return d.onRemoteAdd(m)
	case hostedwire.UpdateFulfillHtlc:
		return d.onRemoteFulfill(m)
	case hostedwire.UpdateFailHtlc:
		return d.onRemoteFailOrMalformed(m, m.ID)
	case hostedwire.UpdateFailMalformedHtlc:
		return d.onRemoteFailOrMalformed(m, m.ID)
	case hostedwire.ChannelUpdate:
		d.hc = d.hc.WithChannelUpdate(m)
		return d.persist()
	case hostedwire.AskBrandingInfo, hostedwire.HostedChannelBranding,
		hostedwire.AnnouncementSignature, hostedwire.QueryPublicHostedChannels,
		hostedwire.ReplyPublicHostedChannelsEnd, hostedwire.QueryPreimages,
		hostedwire.ReplyPreimages, hostedwire.Warning:
		// Best-effort gossip/diagnostics; never gates a state transition
		// (spec.md's supplemented-behavior note on branding/gossip).
		return nil
	default:
		return commits.NewTransitionError(d.channelID, "unrecognized message type")
	}
}

// onInitHostedChannel implements "WaitForAccept + InitHostedChannel"
// (spec.md §4.5): validate bounds, build and sign the zero-state LCSS,
// send the initial StateUpdate, and wait for the host's matching reply.
func (d *Driver) onInitHostedChannel(init hostedwire.InitHostedChannel) error {
	if d.state != commits.WaitForAccept {
		return nil
	}

	b := d.env.Bounds
	switch {
	case init.InitialClientBalanceMsat > init.ChannelCapacityMsat:
		return d.localSuspend(hostedwire.ErrHostedInvalidResize)
	case init.MaxHtlcValueInFlightMsat < b.MinMaxHtlcValueInFlightMsat:
		return d.localSuspend(hostedwire.ErrHostedManualSuspend)
	case init.HtlcMinimumMsat > b.MaxHtlcMinimumMsat:
		return d.localSuspend(hostedwire.ErrHostedManualSuspend)
	case init.MaxAcceptedHtlcs < b.MinMaxAcceptedHtlcs:
		return d.localSuspend(hostedwire.ErrHostedManualSuspend)
	}

	blockDay := d.env.Blocks.CurrentBlockDay()
	zero := lcss.NewClientLCSS(init, d.refundScriptPubKey, blockDay)
	signed := zero.WithLocalSigOfRemoteFunc(d.env.Signer.SignHash)

	d.hc = commits.Reset(d.remoteInfo, signed)
	if err := d.persist(); err != nil {
		return err
	}

	su := hostedwire.StateUpdate{
		BlockDay:             signed.BlockDay,
		LocalUpdates:         signed.LocalUpdates,
		RemoteUpdates:        signed.RemoteUpdates,
		LocalSigOfRemoteLCSS: signed.LocalSigOfRemote,
	}
	if err := d.send(su); err != nil {
		return err
	}
	d.setState(commits.WaitForStateUpdate)
	return nil
}

// onStateUpdate implements "WaitRemoteHostedStateUpdate + StateUpdate"
// (the fresh-channel handshake reply) and the CMD_SIGN handshake reply
// once the channel is Open (spec.md §4.2, §4.5).
func (d *Driver) onStateUpdate(su hostedwire.StateUpdate) error {
	switch d.state {
	case commits.WaitForStateUpdate:
		return d.onInitialStateUpdate(su)
	case commits.Open, commits.Sleeping:
		return d.onSignReply(su)
	default:
		return nil
	}
}

func (d *Driver) onInitialStateUpdate(su hostedwire.StateUpdate) error {
	l := d.hc.LastCrossSignedState
	if su.BlockDay != l.BlockDay || su.RemoteUpdates != 0 || su.LocalUpdates != 0 {
		return commits.NewTransitionError(d.channelID, "initial StateUpdate does not match the proposal we signed")
	}

	l.RemoteSigOfLocal = su.LocalSigOfRemoteLCSS
	if !l.VerifyRemoteSig(d.remoteInfo.NodeID) {
		return commits.NewTransitionError(d.channelID, "host's initial StateUpdate carries an invalid signature")
	}

	d.hc = d.hc.Promote(l)
	if err := d.persist(); err != nil {
		return err
	}
	if err := d.send(hostedwire.AskBrandingInfo{ChannelID: d.channelID}); err != nil {
		return err
	}
	d.setState(commits.Open)
	return nil
}

// onLastCrossSignedState implements both restore paths of spec.md §4.5
// ("WaitForAccept + LastCrossSignedState") and §4.6
// ("Sleeping + LastCrossSignedState → attemptInitResync").
func (d *Driver) onLastCrossSignedState(remote lcss.LCSS) error {
	switch d.state {
	case commits.WaitForAccept:
		return d.restoreFromHost(remote)
	case commits.Sleeping:
		return d.attemptInitResync(remote)
	default:
		return nil
	}
}

// restoreFromHost adopts the reverse of a host-supplied LCSS after
// verifying both signatures (spec.md §4.5: "host already knows us").
// remote is the host's own copy of the state, not ours: its
// RemoteSigOfLocal is the countersignature we ourselves made earlier,
// checked against our own key, while its LocalSigOfRemote is the
// host's countersignature of our view, checked against the host's key.
func (d *Driver) restoreFromHost(remote lcss.LCSS) error {
	if !remote.VerifyRemoteSig(d.env.Signer.PubKey()) || !remote.VerifyLocalSig(d.remoteInfo.NodeID) {
		return d.localSuspend(hostedwire.ErrHostedWrongRemoteSig)
	}

	d.hc = commits.Reset(d.remoteInfo, remote.Reverse())
	if err := d.persist(); err != nil {
		return err
	}
	d.setState(commits.Open)
	return nil
}

// onRemoteFail implements receiving a peer Fail (spec.md §4.8): set
// remoteError, persist, and surface the failure to the caller.
func (d *Driver) onRemoteFail(fail hostedwire.Fail) error {
	d.hc = d.hc.WithRemoteError(fail)
	if err := d.persist(); err != nil {
		return err
	}
	if d.state == commits.WaitForAccept || d.state == commits.Open {
		d.setState(commits.Open)
	}
	return commits.NewPeerError(string(fail.Data))
}

// localSuspend is localSuspend(hc, code) (spec.md §4.8): idempotent,
// persist before send.
func (d *Driver) localSuspend(code string) error {
	if d.hc.LocalError.IsSome() {
		return nil
	}
	log.Warnf("channel %x: local suspend %s", d.channelID, code)
	fail := hostedwire.Fail{ChannelID: d.channelID, Data: []byte(code)}
	d.hc = d.hc.WithLocalError(fail)
	if err := d.persist(); err != nil {
		return err
	}
	return d.send(fail)
}
