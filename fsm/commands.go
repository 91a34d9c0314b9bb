package fsm

import (
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
)

// Change is the tagged sum every input to Driver.Process implements,
// realizing spec.md §9's "tagged sum with exhaustive matching at the
// driver boundary" design note in place of the source's sealed-hierarchy
// pattern matching.
type Change interface {
	isChange()
}

// CmdSocketOnline is CMD_SOCKET_ONLINE (spec.md §4.5).
type CmdSocketOnline struct{}

// CmdSocketOffline is CMD_SOCKET_OFFLINE (spec.md §4.5).
type CmdSocketOffline struct{}

// CmdSign is CMD_SIGN: commit every pending update into a new signed
// LCSS (spec.md §4.2). Driver.Process also issues this internally after
// any locally-originated update.
type CmdSign struct{}

// CmdAddHtlc is CMD_ADD_HTLC: propose a new outgoing HTLC.
type CmdAddHtlc struct {
	AmountMsat         lnwire.MilliSatoshi
	PaymentHash        lntypes.Hash
	CltvExpiry         uint32
	OnionRoutingPacket [hostedwire.OnionPacketSize]byte
	TLVs               []byte
}

// CmdFulfillHtlc is CMD_FULFILL_HTLC: reveal the preimage for an
// incoming HTLC.
type CmdFulfillHtlc struct {
	ID       uint64
	Preimage [32]byte
}

// CmdFailHtlc is CMD_FAIL_HTLC.
type CmdFailHtlc struct {
	ID     uint64
	Reason []byte
}

// CmdFailMalformedHtlc is CMD_FAIL_MALFORMED_HTLC.
type CmdFailMalformedHtlc struct {
	ID          uint64
	OnionHash   [32]byte
	FailureCode uint16
}

// CmdProposeResize is the client-initiated capacity growth of spec.md
// §4.7.
type CmdProposeResize struct {
	DeltaMsat lnwire.MilliSatoshi
}

// CmdAcceptOverride applies a pending overrideProposal (spec.md §4.7).
type CmdAcceptOverride struct{}

// CmdLocalSuspend manually suspends the channel with an ERR_HOSTED_*
// code, the operator-triggered half of localSuspend (spec.md §4.8).
type CmdLocalSuspend struct {
	Code string
}

// BlockTick is CurrentBlockCount(tip), the per-block expiry sweep input
// (spec.md §4.4).
type BlockTick struct {
	Tip uint32
}

// Received wraps one peer-originated wire message (spec.md §6).
type Received struct {
	Msg hostedwire.Message
}

func (CmdSocketOnline) isChange()      {}
func (CmdSocketOffline) isChange()     {}
func (CmdSign) isChange()              {}
func (CmdAddHtlc) isChange()           {}
func (CmdFulfillHtlc) isChange()       {}
func (CmdFailHtlc) isChange()          {}
func (CmdFailMalformedHtlc) isChange() {}
func (CmdProposeResize) isChange()     {}
func (CmdAcceptOverride) isChange()    {}
func (CmdLocalSuspend) isChange()      {}
func (BlockTick) isChange()            {}
func (Received) isChange()             {}
