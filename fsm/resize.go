package fsm

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
)

// onCmdProposeResize is proposeResize(delta) (spec.md §4.7): build a
// ResizeChannel, store it, send it, and let the next CMD_SIGN fold the
// new capacity in via withResize.
func (d *Driver) onCmdProposeResize(cmd CmdProposeResize) error {
	newCapacity := d.hc.LastCrossSignedState.ChannelCapacityMsat + cmd.DeltaMsat
	rc := hostedwire.ResizeChannel{
		NewCapacityMsat: newCapacity,
		ClientSig:       d.env.Signer.SignHash(resizeSigHash(newCapacity)),
	}

	d.hc = d.hc.WithResizeProposal(rc)
	if err := d.persist(); err != nil {
		return err
	}
	log.Debugf("channel %x: proposing resize to %d msat", d.channelID, newCapacity)
	if err := d.send(rc); err != nil {
		return err
	}
	return d.signHandshake()
}

// resizeSigHash is sha256(u64_LE(newCapacity)), the quantity
// ResizeChannel.ClientSig signs (spec.md §4.7).
func resizeSigHash(newCapacityMsat lnwire.MilliSatoshi) [32]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(newCapacityMsat))
	return sha256.Sum256(buf[:])
}

// onRemoteResizeProposal stores a peer-proposed resize (spec.md §4.7);
// either role can be the one proposing growth, so the host side folds a
// peer's ResizeChannel in the same way the client folds its own.
func (d *Driver) onRemoteResizeProposal(rc hostedwire.ResizeChannel) error {
	d.hc = d.hc.WithResizeProposal(rc)
	return d.persist()
}
