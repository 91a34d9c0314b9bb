// Package hostedwire holds the typed domain model for the Lightning
// messages a hosted channel exchanges with its peer. The wire codec itself
// (how these values are framed, encrypted, and put on a TCP/Noise
// connection) is an external collaborator; this package models the
// messages as plain Go values, the way they are consumed after decoding.
//
// The one exception is UpdateAddHtlc.Serialize, which must match the
// Lightning wire codec byte-for-byte because it is folded into
// hostedSigHash (see the lcss package).
package hostedwire

import (
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

// OnionPacketSize is the size of the Sphinx onion packet carried by an
// UpdateAddHtlc, per BOLT #4.
const OnionPacketSize = 1366

// Message is implemented by every hosted-channel wire type. It realizes
// the "tagged sum" design note: exhaustive matching happens at the driver
// boundary via a type switch on Message, not via embedded variant tags.
type Message interface {
	MsgType() uint16
}

// Message type tags. These are internal discriminators for the type
// switch at the driver boundary, not the real BOLT message numbers
// (those belong to the external wire codec).
const (
	MsgInvokeHostedChannel uint16 = iota
	MsgInitHostedChannel
	MsgLastCrossSignedState
	MsgStateUpdate
	MsgStateOverride
	MsgResizeChannel
	MsgUpdateAddHtlc
	MsgUpdateFulfillHtlc
	MsgUpdateFailHtlc
	MsgUpdateFailMalformedHtlc
	MsgAskBrandingInfo
	MsgHostedChannelBranding
	MsgAnnouncementSignature
	MsgQueryPublicHostedChannels
	MsgReplyPublicHostedChannelsEnd
	MsgQueryPreimages
	MsgReplyPreimages
	MsgFail
	MsgWarning
	MsgChannelUpdate
)

// InvokeHostedChannel is sent by the client on reconnect to ask the host
// to either create or resume a hosted channel.
type InvokeHostedChannel struct {
	ChainHash           [32]byte
	RefundScriptPubKey  []byte
	Secret              []byte
}

func (InvokeHostedChannel) MsgType() uint16 { return MsgInvokeHostedChannel }

// InitHostedChannel carries the host's proposed channel parameters.
type InitHostedChannel struct {
	MaxHtlcValueInFlightMsat lnwire.MilliSatoshi
	HtlcMinimumMsat          lnwire.MilliSatoshi
	MaxAcceptedHtlcs         uint16
	ChannelCapacityMsat      lnwire.MilliSatoshi
	InitialClientBalanceMsat lnwire.MilliSatoshi
	Features                 []uint16
}

func (InitHostedChannel) MsgType() uint16 { return MsgInitHostedChannel }

// AddHtlc is the wire shape of an in-flight HTLC as carried inside an
// LCSS (spec.md §3's incomingHtlcs/outgoingHtlcs) and as the standalone
// UpdateAddHtlc message.
type AddHtlc struct {
	ChannelID          lnwire.ChannelID
	ID                 uint64
	AmountMsat         lnwire.MilliSatoshi
	PaymentHash        lntypes.Hash
	CltvExpiry         uint32
	OnionRoutingPacket [OnionPacketSize]byte
	// TLVs holds any extension records attached to the add, including the
	// routing-secret tag referenced in spec.md §9. Decoding it is an
	// external codec concern; the core only needs to know whether it was
	// readable (see env.TagDecrypter).
	TLVs []byte
}

func (AddHtlc) MsgType() uint16 { return MsgUpdateAddHtlc }

// UpdateFulfillHtlc reveals the preimage for a previously added HTLC.
type UpdateFulfillHtlc struct {
	ChannelID lnwire.ChannelID
	ID        uint64
	Preimage  lntypes.Preimage
}

func (UpdateFulfillHtlc) MsgType() uint16 { return MsgUpdateFulfillHtlc }

// UpdateFailHtlc fails a previously added HTLC with an opaque onion
// failure reason.
type UpdateFailHtlc struct {
	ChannelID lnwire.ChannelID
	ID        uint64
	Reason    []byte
}

func (UpdateFailHtlc) MsgType() uint16 { return MsgUpdateFailHtlc }

// UpdateFailMalformedHtlc fails an HTLC whose onion could not be
// processed at all.
type UpdateFailMalformedHtlc struct {
	ChannelID    lnwire.ChannelID
	ID           uint64
	OnionHash    [32]byte
	FailureCode  uint16
}

func (UpdateFailMalformedHtlc) MsgType() uint16 { return MsgUpdateFailMalformedHtlc }

// StateUpdate is the signing-handshake message of spec.md §4.2: either
// side's proposal to move the LCSS forward.
type StateUpdate struct {
	BlockDay             uint32
	LocalUpdates         uint32
	RemoteUpdates        uint32
	LocalSigOfRemoteLCSS Sig64
}

func (StateUpdate) MsgType() uint16 { return MsgStateUpdate }

// StateOverride is the host's forced-recovery proposal of spec.md §4.7.
type StateOverride struct {
	BlockDay             uint32
	LocalBalanceMsat     lnwire.MilliSatoshi
	LocalUpdates         uint32
	RemoteUpdates        uint32
	LocalSigOfRemoteLCSS Sig64
}

func (StateOverride) MsgType() uint16 { return MsgStateOverride }

// ResizeChannel is the client's capacity-growth proposal of spec.md §4.7.
type ResizeChannel struct {
	NewCapacityMsat lnwire.MilliSatoshi
	ClientSig       Sig64
}

func (ResizeChannel) MsgType() uint16 { return MsgResizeChannel }

// AskBrandingInfo requests the host's branding metadata.
type AskBrandingInfo struct {
	ChannelID lnwire.ChannelID
}

func (AskBrandingInfo) MsgType() uint16 { return MsgAskBrandingInfo }

// HostedChannelBranding carries the host's display metadata.
type HostedChannelBranding struct {
	ChannelID   lnwire.ChannelID
	RGB         [3]byte
	PngIcon     []byte
	ContactInfo string
}

func (HostedChannelBranding) MsgType() uint16 { return MsgHostedChannelBranding }

// AnnouncementSignature carries a gossip signature share for a hosted
// channel announcement.
type AnnouncementSignature struct {
	ChannelID      lnwire.ChannelID
	NodeSignature  Sig64
	WantsReply     bool
}

func (AnnouncementSignature) MsgType() uint16 { return MsgAnnouncementSignature }

// QueryPublicHostedChannels asks a peer to enumerate its public hosted
// channels.
type QueryPublicHostedChannels struct {
	ChainHash [32]byte
}

func (QueryPublicHostedChannels) MsgType() uint16 { return MsgQueryPublicHostedChannels }

// ReplyPublicHostedChannelsEnd terminates a QueryPublicHostedChannels
// response stream.
type ReplyPublicHostedChannelsEnd struct {
	ChainHash [32]byte
}

func (ReplyPublicHostedChannelsEnd) MsgType() uint16 { return MsgReplyPublicHostedChannelsEnd }

// QueryPreimages asks a PHC-sync peer whether it knows the preimage for
// any of the given payment hashes (spec.md §4.4's on-chain rescue path).
type QueryPreimages struct {
	Hashes []lntypes.Hash
}

func (QueryPreimages) MsgType() uint16 { return MsgQueryPreimages }

// ReplyPreimages carries back every preimage the peer was able to find.
type ReplyPreimages struct {
	Preimages []lntypes.Preimage
}

func (ReplyPreimages) MsgType() uint16 { return MsgReplyPreimages }

// Fail suspends the channel with a hex-encoded error code in Data
// (one of the ERR_HOSTED_* constants).
type Fail struct {
	ChannelID lnwire.ChannelID
	Data      []byte
}

func (Fail) MsgType() uint16 { return MsgFail }

// Warning is a non-fatal diagnostic sent to the peer.
type Warning struct {
	ChannelID lnwire.ChannelID
	Data      []byte
}

func (Warning) MsgType() uint16 { return MsgWarning }

// ChannelUpdate is the standard gossip message advertising routing
// policy for this channel; consumed and stored opaquely.
type ChannelUpdate struct {
	ChannelID       lnwire.ChannelID
	Timestamp       uint32
	MessageFlags    uint8
	ChannelFlags    uint8
	CltvExpiryDelta uint16
	HtlcMinimumMsat lnwire.MilliSatoshi
	FeeBaseMsat     uint32
	FeeProportional uint32
	// HtlcMaximumMsat is optional gossip and MUST be preserved through
	// serialization round trips even when absent (spec.md §9).
	HtlcMaximumMsat *lnwire.MilliSatoshi
	Signature       Sig64
}

func (ChannelUpdate) MsgType() uint16 { return MsgChannelUpdate }

// Error codes placed verbatim into Fail.Data (hex-encoded by the caller
// before handing it to the wire codec).
const (
	ErrHostedWrongRemoteSig      = "ERR_HOSTED_WRONG_REMOTE_SIG"
	ErrHostedWrongLocalSig       = "ERR_HOSTED_WRONG_LOCAL_SIG"
	ErrHostedManualSuspend       = "ERR_HOSTED_MANUAL_SUSPEND"
	ErrHostedTimedOutOutgoingHtlc = "ERR_HOSTED_TIMED_OUT_OUTGOING_HTLC"
	ErrHostedInvalidResize       = "ERR_HOSTED_INVALID_RESIZE"
)
