package store

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	fn "github.com/lightningnetwork/lnd/fn/v2"

	"github.com/rorp/immortan/commits"
	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

func parsePubKey(b []byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(b)
}

// recordVersion1 is the only encoding version so far. Bumping this lets
// a future format change decode old records without a migration pass,
// the "tagged versioned format" spec.md §6 asks for in place of
// moonbeam's bare JSON blob.
const recordVersion1 byte = 1

// messageEnvelope carries one hostedwire.Message through JSON with its
// MsgType tag alongside, since the Message interface itself carries no
// type information a decoder could recover.
type messageEnvelope struct {
	Type    uint16          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeMessages(msgs []hostedwire.Message) ([]messageEnvelope, error) {
	out := make([]messageEnvelope, 0, len(msgs))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		out = append(out, messageEnvelope{Type: m.MsgType(), Payload: payload})
	}
	return out, nil
}

func decodeMessages(envs []messageEnvelope) ([]hostedwire.Message, error) {
	out := make([]hostedwire.Message, 0, len(envs))
	for _, e := range envs {
		m, err := decodeOneMessage(e)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeOneMessage(e messageEnvelope) (hostedwire.Message, error) {
	switch e.Type {
	case hostedwire.MsgUpdateAddHtlc:
		var m hostedwire.AddHtlc
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgUpdateFulfillHtlc:
		var m hostedwire.UpdateFulfillHtlc
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgUpdateFailHtlc:
		var m hostedwire.UpdateFailHtlc
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgUpdateFailMalformedHtlc:
		var m hostedwire.UpdateFailMalformedHtlc
		return m, json.Unmarshal(e.Payload, &m)
	default:
		return nil, fmt.Errorf("store: unknown pending-update message type %d", e.Type)
	}
}

// record is the on-disk JSON shape of a HostedCommits, flattening the
// fn.Option fields into nullable pointers the way models.go flattens
// moonbeam's wire types for its DTOs.
type record struct {
	RemoteNodeID             []byte            `json:"remote_node_id"`
	RemoteNodeSpecificPubKey []byte            `json:"remote_node_specific_pub_key"`
	LastCrossSignedState     lcss.LCSS         `json:"last_cross_signed_state"`
	NextLocalUpdates         []messageEnvelope `json:"next_local_updates"`
	NextRemoteUpdates        []messageEnvelope `json:"next_remote_updates"`
	UpdateOpt                *hostedwire.ChannelUpdate  `json:"update,omitempty"`
	PostErrorOutgoingResolvedIds []uint64      `json:"post_error_outgoing_resolved_ids,omitempty"`
	LocalError                *hostedwire.Fail `json:"local_error,omitempty"`
	RemoteError                *hostedwire.Fail `json:"remote_error,omitempty"`
	ResizeProposal              *hostedwire.ResizeChannel `json:"resize_proposal,omitempty"`
	OverrideProposal             *hostedwire.StateOverride `json:"override_proposal,omitempty"`
}

func optToPtr[A any](o fn.Option[A]) *A {
	var out *A
	o.WhenSome(func(a A) { v := a; out = &v })
	return out
}

func ptrToOpt[A any](p *A) fn.Option[A] {
	if p == nil {
		return fn.None[A]()
	}
	return fn.Some(*p)
}

// Encode serializes hc into the tagged versioned record format.
func Encode(hc commits.HostedCommits) ([]byte, error) {
	localMsgs, err := encodeMessages(hc.NextLocalUpdates)
	if err != nil {
		return nil, err
	}
	remoteMsgs, err := encodeMessages(hc.NextRemoteUpdates)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(hc.PostErrorOutgoingResolvedIds))
	for id := range hc.PostErrorOutgoingResolvedIds {
		ids = append(ids, id)
	}

	rec := record{
		RemoteNodeID:                  hc.RemoteInfo.NodeID.SerializeCompressed(),
		RemoteNodeSpecificPubKey:      hc.RemoteInfo.NodeSpecificPubKey.SerializeCompressed(),
		LastCrossSignedState:          hc.LastCrossSignedState,
		NextLocalUpdates:              localMsgs,
		NextRemoteUpdates:             remoteMsgs,
		UpdateOpt:                     optToPtr(hc.UpdateOpt),
		PostErrorOutgoingResolvedIds:  ids,
		LocalError:                    optToPtr(hc.LocalError),
		RemoteError:                   optToPtr(hc.RemoteError),
		ResizeProposal:                optToPtr(hc.ResizeProposal),
		OverrideProposal:              optToPtr(hc.OverrideProposal),
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	return append([]byte{recordVersion1}, body...), nil
}

// Decode parses a tagged versioned record back into a HostedCommits.
func Decode(data []byte) (commits.HostedCommits, error) {
	if len(data) < 1 {
		return commits.HostedCommits{}, fmt.Errorf("store: record too short")
	}
	if data[0] != recordVersion1 {
		return commits.HostedCommits{}, fmt.Errorf("store: unsupported record version %d", data[0])
	}

	var rec record
	if err := json.Unmarshal(data[1:], &rec); err != nil {
		return commits.HostedCommits{}, err
	}

	nodeID, err := parsePubKey(rec.RemoteNodeID)
	if err != nil {
		return commits.HostedCommits{}, err
	}
	nodeSpecific, err := parsePubKey(rec.RemoteNodeSpecificPubKey)
	if err != nil {
		return commits.HostedCommits{}, err
	}

	localMsgs, err := decodeMessages(rec.NextLocalUpdates)
	if err != nil {
		return commits.HostedCommits{}, err
	}
	remoteMsgs, err := decodeMessages(rec.NextRemoteUpdates)
	if err != nil {
		return commits.HostedCommits{}, err
	}

	ids := make(map[uint64]struct{}, len(rec.PostErrorOutgoingResolvedIds))
	for _, id := range rec.PostErrorOutgoingResolvedIds {
		ids[id] = struct{}{}
	}

	return commits.HostedCommits{
		RemoteInfo: commits.RemoteInfo{
			NodeID:             nodeID,
			NodeSpecificPubKey: nodeSpecific,
		},
		LastCrossSignedState:          rec.LastCrossSignedState,
		NextLocalUpdates:              localMsgs,
		NextRemoteUpdates:             remoteMsgs,
		UpdateOpt:                     ptrToOpt(rec.UpdateOpt),
		PostErrorOutgoingResolvedIds:  ids,
		LocalError:                    ptrToOpt(rec.LocalError),
		RemoteError:                   ptrToOpt(rec.RemoteError),
		ResizeProposal:                ptrToOpt(rec.ResizeProposal),
		OverrideProposal:              ptrToOpt(rec.OverrideProposal),
	}, nil
}
