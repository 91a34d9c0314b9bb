package hostedwire

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Sig64Size is the length of a compact (fixed-size, non-DER) secp256k1
// signature: a 32-byte R value followed by a 32-byte S value. Every
// signature on the hosted-channel wire (StateUpdate, StateOverride,
// ResizeChannel, LCSS) uses this fixed format rather than variable-length
// DER, matching the rest of the Lightning wire protocol.
const Sig64Size = 64

// Sig64 is a compact secp256k1 ECDSA signature.
type Sig64 [Sig64Size]byte

// ZeroSig64 is the unset signature value.
var ZeroSig64 Sig64

// IsZero reports whether the signature has never been set.
func (s Sig64) IsZero() bool {
	return s == ZeroSig64
}

// SignCompact signs hash with priv and returns the compact wire form.
func SignCompact(priv *btcec.PrivateKey, hash [32]byte) Sig64 {
	sig := ecdsa.Sign(priv, hash[:])
	return sig64FromSignature(sig)
}

// Verify checks a compact signature over hash against pub.
func (s Sig64) Verify(pub *btcec.PublicKey, hash [32]byte) bool {
	sig, err := s.toSignature()
	if err != nil {
		return false
	}
	return sig.Verify(hash[:], pub)
}

func sig64FromSignature(sig *ecdsa.Signature) Sig64 {
	var out Sig64

	rBytes := sig.R().Bytes()
	sBytes := sig.S().Bytes()

	copy(out[32-len(rBytes):32], rBytes[:])
	copy(out[64-len(sBytes):64], sBytes[:])

	return out
}

func (s Sig64) toSignature() (*ecdsa.Signature, error) {
	var r, sVal btcec.ModNScalar
	if overflow := r.SetByteSlice(s[0:32]); overflow {
		return nil, errors.New("hostedwire: signature R overflows curve order")
	}
	if overflow := sVal.SetByteSlice(s[32:64]); overflow {
		return nil, errors.New("hostedwire: signature S overflows curve order")
	}

	return ecdsa.NewSignature(&r, &sVal), nil
}
