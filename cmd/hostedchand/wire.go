package main

import (
	"encoding/json"
	"fmt"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
	"github.com/rorp/immortan/lcss"
)

// envelope is one peer's inbound or outbound batch for a single channel,
// the same shape transport.Sender emits on the client side of the same
// connection.
type envelope struct {
	ChannelID lnwire.ChannelID  `json:"channel_id"`
	Messages  []messageEnvelope `json:"messages"`
}

type messageEnvelope struct {
	Type    uint16          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeMessage(m hostedwire.Message) (messageEnvelope, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return messageEnvelope{}, err
	}
	return messageEnvelope{Type: m.MsgType(), Payload: payload}, nil
}

// decodeMessage covers every wire type a peer may send us, the full
// counterpart to store/codec.go's decodeOneMessage, which only needs the
// subset that can sit in a pending-update queue.
func decodeMessage(e messageEnvelope) (hostedwire.Message, error) {
	switch e.Type {
	case hostedwire.MsgInvokeHostedChannel:
		var m hostedwire.InvokeHostedChannel
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgInitHostedChannel:
		var m hostedwire.InitHostedChannel
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgLastCrossSignedState:
		var m lcss.LCSS
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgStateUpdate:
		var m hostedwire.StateUpdate
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgStateOverride:
		var m hostedwire.StateOverride
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgResizeChannel:
		var m hostedwire.ResizeChannel
		return m, json.Unmarshal(e.Payload, &m)
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
	case hostedwire.MsgAskBrandingInfo:
		var m hostedwire.AskBrandingInfo
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgHostedChannelBranding:
		var m hostedwire.HostedChannelBranding
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgAnnouncementSignature:
		var m hostedwire.AnnouncementSignature
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgQueryPublicHostedChannels:
		var m hostedwire.QueryPublicHostedChannels
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgReplyPublicHostedChannelsEnd:
		var m hostedwire.ReplyPublicHostedChannelsEnd
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgQueryPreimages:
		var m hostedwire.QueryPreimages
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgReplyPreimages:
		var m hostedwire.ReplyPreimages
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgFail:
		var m hostedwire.Fail
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgWarning:
		var m hostedwire.Warning
		return m, json.Unmarshal(e.Payload, &m)
	case hostedwire.MsgChannelUpdate:
		var m hostedwire.ChannelUpdate
		return m, json.Unmarshal(e.Payload, &m)
	default:
		return nil, fmt.Errorf("hostedchand: unknown message type %d", e.Type)
	}
}
