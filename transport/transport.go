// Package transport provides a minimal concrete Sender (spec.md §2's
// "SEND(msgs)" primitive) over HTTP+JSON, adapted from client/client.go's
// do() request helper and its -debug_rpc logging flag.
package transport

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/hostedwire"
)

var debugRPC = flag.Bool("debug_transport", true, "log outgoing hosted-channel messages")

// envelope is one outbound batch: every message for a single channel,
// tagged so the receiving peer's dispatcher can decode each one to its
// concrete type, the same shape store/codec.go uses for persistence.
type envelope struct {
	ChannelID lnwire.ChannelID  `json:"channel_id"`
	Messages  []messageEnvelope `json:"messages"`
}

type messageEnvelope struct {
	Type    uint16          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Sender posts one or more hostedwire.Message values to a peer's HTTP
// endpoint, preserving call order (spec.md §5: "outbound messages are
// delivered in the order SEND was called").
type Sender struct {
	endpoint string
	http     *http.Client
}

// NewSender builds a Sender that POSTs to endpoint.
func NewSender(httpClient *http.Client, endpoint string) *Sender {
	return &Sender{endpoint: endpoint, http: httpClient}
}

// Send implements fsm.Sender's SEND(msgs): fire-and-forget, never
// reordered, never retried (back-pressure and retries are the
// transport's concern per spec.md §1, not the core's).
func (s *Sender) Send(channelID lnwire.ChannelID, msgs []hostedwire.Message) error {
	envs := make([]messageEnvelope, 0, len(msgs))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return err
		}
		envs = append(envs, messageEnvelope{Type: m.MsgType(), Payload: payload})
	}

	body, err := json.Marshal(envelope{ChannelID: channelID, Messages: envs})
	if err != nil {
		return err
	}

	if *debugRPC {
		log.Debugf("transport: POST %s\n%s", s.endpoint, string(body))
	}

	resp, err := s.http.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: http error code %d from %s", resp.StatusCode, s.endpoint)
	}
	return nil
}
