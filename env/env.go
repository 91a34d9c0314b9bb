// Package env bundles the external collaborators a fsm.Driver needs
// into one explicit value, the "explicit environment value" design note
// (spec.md §9) that replaces any package-level mutable singleton for
// the node key, block feed, or PHC-sync peer list.
package env

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
)

// Signer keeps the wallet's node private key behind a narrow interface
// so it is never copied into a HostedCommits or logged.
type Signer interface {
	// SignHash signs hash with the node key, returning a compact
	// signature ready to install as localSigOfRemote.
	SignHash(hash [32]byte) hostedwire.Sig64
	// PubKey returns the node's public key, the value a peer checks
	// remoteSigOfLocal/localSigOfRemote against.
	PubKey() *btcec.PublicKey
}

// BlockSource is the injected block counter (spec.md §1's "the global
// block counter (monotonic currentBlockCount, currentBlockDay)").
type BlockSource interface {
	CurrentBlockCount() uint32
	CurrentBlockDay() uint32
}

// TagDecrypter resolves the TLV routing-secret tag an UpdateAddHtlc may
// carry (spec.md §9's "fullTag"/TLV-decrypt open question). An
// implementation returns ok=false when it cannot decrypt the tag. Env
// carries it as Env.TagDecoder, but no package in this module calls it:
// the driver never inspects an add's TLVs, so it neither classifies an
// add as locally sent nor fails an add over an unreadable tag.
type TagDecrypter interface {
	Decrypt(tlvs []byte) (tag []byte, ok bool)
}

// InitBounds are the negotiation bounds a WaitForAccept InitHostedChannel
// must satisfy (spec.md §4.5).
type InitBounds struct {
	MinMaxHtlcValueInFlightMsat lnwire.MilliSatoshi
	MaxHtlcMinimumMsat          lnwire.MilliSatoshi
	MinMaxAcceptedHtlcs         uint16
}

// DefaultInitBounds are the literal bounds spec.md §4.5 names:
// maxHtlcValueInFlightMsat ≥ 100_000_000, htlcMinimumMsat ≤ 546_000,
// maxAcceptedHtlcs ≥ 1.
var DefaultInitBounds = InitBounds{
	MinMaxHtlcValueInFlightMsat: 100_000_000,
	MaxHtlcMinimumMsat:          546_000,
	MinMaxAcceptedHtlcs:         1,
}

// Env is passed into fsm.NewDriver at construction time; no package in
// this module keeps a mutable global of any of these.
type Env struct {
	Signer      Signer
	Blocks      BlockSource
	TagDecoder  TagDecrypter
	Bounds      InitBounds
	PHCSyncPeers []string
}
