package hostedwire

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Serialize writes a.ChannelID, ID, Amount, PaymentHash, CltvExpiry, the
// onion packet, and the raw TLV stream in the exact field order and
// integer endianness (big-endian) the Lightning wire codec uses for
// UpdateAddHtlc. hostedSigHash folds this byte-for-byte into the signed
// LCSS digest (spec.md §3), so this encoding must never change shape
// independently of the real wire codec.
func (a AddHtlc) Serialize(w io.Writer) error {
	if _, err := w.Write(a.ChannelID[:]); err != nil {
		return err
	}

	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], a.ID)
	if _, err := w.Write(u64[:]); err != nil {
		return err
	}

	binary.BigEndian.PutUint64(u64[:], uint64(a.AmountMsat))
	if _, err := w.Write(u64[:]); err != nil {
		return err
	}

	if _, err := w.Write(a.PaymentHash[:]); err != nil {
		return err
	}

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], a.CltvExpiry)
	if _, err := w.Write(u32[:]); err != nil {
		return err
	}

	if _, err := w.Write(a.OnionRoutingPacket[:]); err != nil {
		return err
	}

	_, err := w.Write(a.TLVs)
	return err
}

// Bytes returns the serialized form of a. It never fails: Serialize only
// errors on a failing io.Writer, and bytes.Buffer never fails to write.
func (a AddHtlc) Bytes() []byte {
	var buf bytes.Buffer
	_ = a.Serialize(&buf)
	return buf.Bytes()
}
