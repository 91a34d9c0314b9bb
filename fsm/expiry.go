package fsm

import (
	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
)

// onBlockTick is CurrentBlockCount(tip) (spec.md §4.4), generalized from
// receiver/watcher.go's WatchBlockchainForever/checkChannel loop shape:
// on-chain close-near-timeout becomes "expire HTLCs, rescue preimages,
// suspend".
func (d *Driver) onBlockTick(tip uint32) error {
	if d.state != commits.Open && d.state != commits.Sleeping {
		return nil
	}

	spec := d.hc.LocalSpec()

	revealed := make(map[uint64]bool)
	for _, m := range d.hc.NextLocalUpdates {
		if f, ok := m.(hostedwire.UpdateFulfillHtlc); ok {
			revealed[f.ID] = true
		}
	}
	for _, add := range spec.IncomingHtlcs {
		if revealed[add.ID] && tip > add.CltvExpiry {
			if err := d.localSuspend(hostedwire.ErrHostedManualSuspend); err != nil {
				return err
			}
			break
		}
	}

	byHash := make(map[lntypes.Hash][]hostedwire.AddHtlc)
	var hashes []lntypes.Hash
	for _, add := range spec.OutgoingHtlcs {
		if tip <= add.CltvExpiry {
			continue
		}
		if _, seen := byHash[add.PaymentHash]; !seen {
			hashes = append(hashes, add.PaymentHash)
		}
		byHash[add.PaymentHash] = append(byHash[add.PaymentHash], add)
	}
	if len(hashes) == 0 {
		return nil
	}

	log.Infof("channel %x: %d outgoing htlc(s) expired at tip %d, checking for rescued preimages", d.channelID, len(hashes), tip)
	found, checkErr := d.rescue.PreimageCheck(hashes)
	if checkErr != nil {
		log.Warnf("channel %x: preimage rescue check failed: %v", d.channelID, checkErr)
		found = nil
	}

	for hash, adds := range byHash {
		preimage, ok := found[hash]
		for _, add := range adds {
			switch {
			case ok:
				d.listener.FulfillReceived(d.channelID, add, [32]byte(preimage))
			default:
				d.listener.AddRejectedLocally(d.channelID, add, commits.InPrincipleNotSendable)
			}
			d.hc = d.hc.WithPostErrorOutgoingResolved(add.ID)
		}
	}

	if err := d.persist(); err != nil {
		return err
	}
	return d.localSuspend(hostedwire.ErrHostedTimedOutOutgoingHtlc)
}
