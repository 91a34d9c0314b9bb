package fsm

import (
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
)

// Listener receives notifications about one channel's activity
// (spec.md §6). Implementations hold the channel by its opaque id
// (ChannelID) and dispatch through a registry rather than a back-
// pointer into the Driver itself, per spec.md §9's "Cyclic references"
// design note.
type Listener interface {
	AddReceived(channelID lnwire.ChannelID, add hostedwire.AddHtlc)
	FulfillReceived(channelID lnwire.ChannelID, add hostedwire.AddHtlc, preimage [32]byte)
	AddRejectedLocally(channelID lnwire.ChannelID, add hostedwire.AddHtlc, reason commits.AddRejectReason)
	AddRejectedRemotely(channelID lnwire.ChannelID, add hostedwire.AddHtlc)
	NotifyResolvers(channelID lnwire.ChannelID)
	StateTransition(channelID lnwire.ChannelID, old, new commits.ChannelState)
}

// NopListener implements Listener with no-ops, the default when a
// Driver is built without one.
type NopListener struct{}

func (NopListener) AddReceived(lnwire.ChannelID, hostedwire.AddHtlc)                               {}
func (NopListener) FulfillReceived(lnwire.ChannelID, hostedwire.AddHtlc, [32]byte)                 {}
func (NopListener) AddRejectedLocally(lnwire.ChannelID, hostedwire.AddHtlc, commits.AddRejectReason) {}
func (NopListener) AddRejectedRemotely(lnwire.ChannelID, hostedwire.AddHtlc)                       {}
func (NopListener) NotifyResolvers(lnwire.ChannelID)                                                {}
func (NopListener) StateTransition(lnwire.ChannelID, commits.ChannelState, commits.ChannelState)   {}

var _ Listener = NopListener{}
