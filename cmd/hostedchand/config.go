package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/rorp/immortan/commits"
)

// peerConfig describes one remote this daemon holds (or will open) a
// hosted channel with: who they are and where to reach them. Multiple
// entries let one daemon run several hosted channels concurrently, the
// same "one process, many channel records" shape cmd/mbserver's
// Storage+Directory pairing gives moonbeam.
type peerConfig struct {
	NodeID             string `json:"node_id"`
	NodeSpecificPubKey string `json:"node_specific_pub_key"`
	Endpoint           string `json:"endpoint"`
	RefundScriptPubKey string `json:"refund_script_pub_key"`
}

func loadPeers(path string) ([]peerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var peers []peerConfig
	if err := json.Unmarshal(raw, &peers); err != nil {
		return nil, fmt.Errorf("hostedchand: parsing %s: %w", path, err)
	}
	return peers, nil
}

func (p peerConfig) remoteInfo() (commits.RemoteInfo, error) {
	nodeID, err := parsePubKeyHex(p.NodeID)
	if err != nil {
		return commits.RemoteInfo{}, fmt.Errorf("node_id: %w", err)
	}
	nodeSpecific, err := parsePubKeyHex(p.NodeSpecificPubKey)
	if err != nil {
		return commits.RemoteInfo{}, fmt.Errorf("node_specific_pub_key: %w", err)
	}
	return commits.RemoteInfo{NodeID: nodeID, NodeSpecificPubKey: nodeSpecific}, nil
}

func (p peerConfig) refundScript() ([]byte, error) {
	return hex.DecodeString(p.RefundScriptPubKey)
}

func parsePubKeyHex(s string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(b)
}
