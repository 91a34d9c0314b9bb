package main

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/rorp/immortan/hostedwire"
)

// nodeSigner wraps the daemon's long-lived node key as an env.Signer,
// the one-key-per-process idiom spec.md §3 calls for in place of
// moonbeam's per-channel BIP32 derivation.
type nodeSigner struct {
	priv *btcec.PrivateKey
}

func newNodeSigner(priv *btcec.PrivateKey) nodeSigner {
	return nodeSigner{priv: priv}
}

func (s nodeSigner) SignHash(hash [32]byte) hostedwire.Sig64 {
	return hostedwire.SignCompact(s.priv, hash)
}

func (s nodeSigner) PubKey() *btcec.PublicKey {
	return s.priv.PubKey()
}
