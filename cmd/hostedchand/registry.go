package main

import (
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/queue"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/fsm"
	"github.com/rorp/immortan/hostedwire"
)

// activityLogSize bounds how many recent Listener events hostedctl's
// inspect command can retrieve per channel.
const activityLogSize = 64

// registry owns every hosted channel this daemon drives and doubles as
// the fsm.Listener every Driver reports into, dispatched by channelID
// rather than a back-pointer into the Driver (spec.md §9's "cyclic
// references" note).
type registry struct {
	mu       sync.Mutex
	drivers  map[lnwire.ChannelID]*fsm.Driver
	activity map[lnwire.ChannelID]*queue.CircularBuffer
}

func newRegistry() *registry {
	return &registry{
		drivers:  make(map[lnwire.ChannelID]*fsm.Driver),
		activity: make(map[lnwire.ChannelID]*queue.CircularBuffer),
	}
}

func (r *registry) add(channelID lnwire.ChannelID, d *fsm.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[channelID] = d
	buf, err := queue.NewCircularBuffer(activityLogSize)
	if err == nil {
		r.activity[channelID] = buf
	}
}

func (r *registry) get(channelID lnwire.ChannelID) (*fsm.Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[channelID]
	return d, ok
}

func (r *registry) channels() []lnwire.ChannelID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lnwire.ChannelID, 0, len(r.drivers))
	for id := range r.drivers {
		out = append(out, id)
	}
	return out
}

// recentActivity returns the channel's most recent Listener events,
// oldest first, for hostedctl inspect.
func (r *registry) recentActivity(channelID lnwire.ChannelID) []interface{} {
	r.mu.Lock()
	buf, ok := r.activity[channelID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return buf.List()
}

func (r *registry) record(channelID lnwire.ChannelID, event interface{}) {
	r.mu.Lock()
	buf, ok := r.activity[channelID]
	r.mu.Unlock()
	if ok {
		buf.Add(event)
	}
}

// The remaining methods implement fsm.Listener.

func (r *registry) AddReceived(channelID lnwire.ChannelID, add hostedwire.AddHtlc) {
	log.Infof("channel %x: incoming htlc %d for %d msat", channelID, add.ID, add.AmountMsat)
	r.record(channelID, fmt.Sprintf("add received: id=%d amount=%d", add.ID, add.AmountMsat))
}

func (r *registry) FulfillReceived(channelID lnwire.ChannelID, add hostedwire.AddHtlc, preimage [32]byte) {
	log.Infof("channel %x: outgoing htlc %d fulfilled", channelID, add.ID)
	r.record(channelID, fmt.Sprintf("fulfilled: id=%d", add.ID))
}

func (r *registry) AddRejectedLocally(channelID lnwire.ChannelID, add hostedwire.AddHtlc, reason commits.AddRejectReason) {
	log.Warnf("channel %x: htlc %d rejected locally: %s", channelID, add.ID, reason)
	r.record(channelID, fmt.Sprintf("rejected locally: id=%d reason=%s", add.ID, reason))
}

func (r *registry) AddRejectedRemotely(channelID lnwire.ChannelID, add hostedwire.AddHtlc) {
	log.Warnf("channel %x: htlc %d rejected by the peer", channelID, add.ID)
	r.record(channelID, fmt.Sprintf("rejected remotely: id=%d", add.ID))
}

func (r *registry) NotifyResolvers(channelID lnwire.ChannelID) {
	r.record(channelID, "resolvers notified")
}

func (r *registry) StateTransition(channelID lnwire.ChannelID, old, new commits.ChannelState) {
	r.record(channelID, fmt.Sprintf("state: %s -> %s", old, new))
}

var _ fsm.Listener = &registry{}
