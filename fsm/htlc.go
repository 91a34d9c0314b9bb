package fsm

import (
	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
)

// onCmdAddHtlc is sendAdd (spec.md §4.3): validate, append, emit the
// wire message, auto-issue CMD_SIGN.
func (d *Driver) onCmdAddHtlc(cmd CmdAddHtlc) error {
	add := hostedwire.AddHtlc{
		ChannelID:          d.channelID,
		ID:                 d.nextLocalID(),
		AmountMsat:         cmd.AmountMsat,
		PaymentHash:        cmd.PaymentHash,
		CltvExpiry:         cmd.CltvExpiry,
		OnionRoutingPacket: cmd.OnionRoutingPacket,
		TLVs:               cmd.TLVs,
	}

	next, err := d.hc.AddLocal(add, d.env.Blocks.CurrentBlockCount())
	if err != nil {
		if reject, ok := err.(*commits.RejectError); ok {
			d.listener.AddRejectedLocally(d.channelID, add, reject.Reason)
			return reject
		}
		return err
	}
	d.hc = next

	if err := d.persist(); err != nil {
		return err
	}
	log.Debugf("channel %x: queued outgoing htlc %d for %d msat", d.channelID, add.ID, add.AmountMsat)
	if err := d.send(add); err != nil {
		return err
	}
	return d.signHandshake()
}

// nextLocalID picks the next outgoing HTLC id: one past the highest id
// among the outgoing HTLCs of nextLocalSpec, so a new add never reuses
// an id still in flight.
func (d *Driver) nextLocalID() uint64 {
	spec, err := d.hc.NextLocalSpec()
	if err != nil {
		return 0
	}
	var max uint64
	for _, h := range spec.OutgoingHtlcs {
		if h.ID >= max {
			max = h.ID + 1
		}
	}
	return max
}

// onCmdFulfillHtlc is CMD_FULFILL_HTLC (spec.md §4.3): always allowed,
// even in error state.
func (d *Driver) onCmdFulfillHtlc(cmd CmdFulfillHtlc) error {
	next, _, err := d.hc.SettleLocal(cmd.ID, cmd.Preimage)
	if err != nil {
		return err
	}
	d.hc = next
	if err := d.persist(); err != nil {
		return err
	}
	if err := d.send(hostedwire.UpdateFulfillHtlc{
		ChannelID: d.channelID,
		ID:        cmd.ID,
		Preimage:  lntypes.Preimage(cmd.Preimage),
	}); err != nil {
		return err
	}
	return d.signHandshake()
}

// onCmdFailHtlc is CMD_FAIL_HTLC (spec.md §4.3): requires error=None.
func (d *Driver) onCmdFailHtlc(cmd CmdFailHtlc) error {
	fail := hostedwire.UpdateFailHtlc{ChannelID: d.channelID, ID: cmd.ID, Reason: cmd.Reason}
	next, _, err := d.hc.FailLocal(fail, cmd.ID)
	if err != nil {
		return err
	}
	d.hc = next
	if err := d.persist(); err != nil {
		return err
	}
	if err := d.send(fail); err != nil {
		return err
	}
	return d.signHandshake()
}

// onCmdFailMalformedHtlc is CMD_FAIL_MALFORMED_HTLC.
func (d *Driver) onCmdFailMalformedHtlc(cmd CmdFailMalformedHtlc) error {
	fail := hostedwire.UpdateFailMalformedHtlc{
		ChannelID:   d.channelID,
		ID:          cmd.ID,
		OnionHash:   cmd.OnionHash,
		FailureCode: cmd.FailureCode,
	}
	next, _, err := d.hc.FailLocal(fail, cmd.ID)
	if err != nil {
		return err
	}
	d.hc = next
	if err := d.persist(); err != nil {
		return err
	}
	if err := d.send(fail); err != nil {
		return err
	}
	return d.signHandshake()
}

// onRemoteAdd is receiveAdd (spec.md §4.3).
func (d *Driver) onRemoteAdd(add hostedwire.AddHtlc) error {
	next, err := d.hc.AddRemote(add)
	if err != nil {
		return err
	}
	d.hc = next
	if err := d.persist(); err != nil {
		return err
	}
	d.listener.AddReceived(d.channelID, add)
	return nil
}

// onRemoteFulfill is the peer resolving one of our outgoing HTLCs
// (spec.md §4.3).
func (d *Driver) onRemoteFulfill(msg hostedwire.UpdateFulfillHtlc) error {
	next, add, err := d.hc.ReceiveFulfill(msg)
	if err != nil {
		return err
	}
	d.hc = next
	if err := d.persist(); err != nil {
		return err
	}
	d.listener.FulfillReceived(d.channelID, add, [32]byte(msg.Preimage))
	return nil
}

// onRemoteFailOrMalformed is the peer failing one of our outgoing HTLCs
// (spec.md §4.3), covering both UpdateFailHtlc and
// UpdateFailMalformedHtlc.
func (d *Driver) onRemoteFailOrMalformed(msg hostedwire.Message, id uint64) error {
	next, add, err := d.hc.ReceiveFail(msg, id)
	if err != nil {
		if commits.IsDisconnectAndSleep(err) {
			log.Debugf("channel %x: fail raced an unsigned add %d, disconnecting", d.channelID, id)
			d.setState(commits.Sleeping)
			return ErrDisconnect
		}
		return err
	}
	d.hc = next
	if err := d.persist(); err != nil {
		return err
	}
	d.listener.AddRejectedRemotely(d.channelID, add)
	return nil
}
