package lcss

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

// HostedSigHash computes the digest that is signed over an LCSS
// (spec.md §3). The outer fields are little-endian, a fixed quirk of the
// hosted-channel signing convention inherited from the original
// implementation; the embedded UpdateAddHtlc values are serialized with
// hostedwire.AddHtlc.Serialize, which follows the real (big-endian)
// Lightning wire codec, because those bytes must be reproducible by
// anything that also implements that codec.
func HostedSigHash(l LCSS) [32]byte {
	var buf bytes.Buffer

	buf.Write(l.RefundScriptPubKey)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(l.ChannelCapacityMsat))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(l.InitialClientBalanceMsat))
	buf.Write(u64[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], l.BlockDay)
	buf.Write(u32[:])

	binary.LittleEndian.PutUint64(u64[:], uint64(l.LocalBalanceMsat))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(l.RemoteBalanceMsat))
	buf.Write(u64[:])

	binary.LittleEndian.PutUint32(u32[:], l.LocalUpdates)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], l.RemoteUpdates)
	buf.Write(u32[:])

	for _, h := range l.IncomingHtlcs {
		buf.Write(h.Bytes())
	}
	for _, h := range l.OutgoingHtlcs {
		buf.Write(h.Bytes())
	}

	if l.IsHost {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	return sha256.Sum256(buf.Bytes())
}
