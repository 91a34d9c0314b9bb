// Package rescue implements the out-of-scope PreimageCheck collaborator
// (spec.md §4.4) as a concrete HTTP-polling client against configured
// PHC-sync peers, adapted from resolver/resolver.go's domain-discovery
// request/decode shape.
package rescue

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/rorp/immortan/hostedwire"
)

// Checker is the interface fsm.Driver calls into for on-chain preimage
// rescue; satisfied by *Client below and trivially fakeable in tests.
type Checker interface {
	PreimageCheck(hashes []lntypes.Hash) (map[lntypes.Hash]lntypes.Preimage, error)
}

// Client queries every configured PHC-sync peer with QueryPreimages and
// merges whatever ReplyPreimages messages come back.
type Client struct {
	HTTPClient *http.Client
	PeerURLs   []string
}

// NewClient builds a Client over the given PHC-sync peer URLs.
func NewClient(peerURLs []string) *Client {
	return &Client{
		HTTPClient: &http.Client{},
		PeerURLs:   peerURLs,
	}
}

// PreimageCheck asks every configured peer whether it knows the
// preimage for any of hashes, merging the results (spec.md §4.4: "invoke
// PreimageCheck over sentExpired.keySet using configured PHC-sync
// peers").
func (c *Client) PreimageCheck(hashes []lntypes.Hash) (map[lntypes.Hash]lntypes.Preimage, error) {
	if len(c.PeerURLs) == 0 {
		return nil, errors.New("rescue: no PHC-sync peers configured")
	}

	query := hostedwire.QueryPreimages{Hashes: hashes}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	found := make(map[lntypes.Hash]lntypes.Preimage)
	var lastErr error
	for _, peerURL := range c.PeerURLs {
		reply, err := c.askOne(peerURL, body)
		if err != nil {
			lastErr = err
			continue
		}
		for _, p := range reply.Preimages {
			found[p.Hash()] = p
		}
	}

	if len(found) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return found, nil
}

func (c *Client) askOne(peerURL string, body []byte) (hostedwire.ReplyPreimages, error) {
	resp, err := c.HTTPClient.Post(peerURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return hostedwire.ReplyPreimages{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hostedwire.ReplyPreimages{}, errors.New("rescue: bad http status from PHC-sync peer")
	}

	var reply hostedwire.ReplyPreimages
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return hostedwire.ReplyPreimages{}, err
	}
	return reply, nil
}
