package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/rorp/immortan/fsm"
)

var debugRPC = flag.Bool("debug_rpc", false, "Log operator RPC requests and responses")

func parse(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	if *debugRPC {
		log.Debugf("request: %s", buf)
	}
	if err := json.Unmarshal(buf, req); err != nil {
		http.Error(w, "json parse error", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, resp interface{}, err error) {
	if err != nil {
		if *debugRPC {
			log.Debugf("error: %v", err)
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warnf("json encode error: %v", err)
	}
}

func lookupDriver(reg *registry, w http.ResponseWriter, r *http.Request) (*fsm.Driver, lnwire.ChannelID, bool) {
	idHex := r.URL.Query().Get("channel_id")
	raw, err := hex.DecodeString(idHex)
	if err != nil || len(raw) != 32 {
		http.Error(w, "bad channel_id", http.StatusBadRequest)
		return nil, lnwire.ChannelID{}, false
	}
	var channelID lnwire.ChannelID
	copy(channelID[:], raw)

	d, ok := reg.get(channelID)
	if !ok {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return nil, lnwire.ChannelID{}, false
	}
	return d, channelID, true
}

type addHtlcRequest struct {
	AmountMsat  lnwire.MilliSatoshi `json:"amount_msat"`
	PaymentHash string              `json:"payment_hash"`
	CltvExpiry  uint32              `json:"cltv_expiry"`
}

func rpcAddHtlcHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, _, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	var req addHtlcRequest
	if !parse(w, r, &req) {
		return
	}
	hash, err := lntypes.MakeHashFromStr(req.PaymentHash)
	if err != nil {
		respond(w, nil, err)
		return
	}
	cmd := fsm.CmdAddHtlc{
		AmountMsat:  req.AmountMsat,
		PaymentHash: hash,
		CltvExpiry:  req.CltvExpiry,
	}
	respond(w, nil, d.Process(cmd))
}

type fulfillHtlcRequest struct {
	ID       uint64 `json:"id"`
	Preimage string `json:"preimage"`
}

func rpcFulfillHtlcHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, _, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	var req fulfillHtlcRequest
	if !parse(w, r, &req) {
		return
	}
	raw, err := hex.DecodeString(req.Preimage)
	if err != nil || len(raw) != 32 {
		respond(w, nil, fmt.Errorf("preimage must be 32 hex-encoded bytes"))
		return
	}
	var preimage [32]byte
	copy(preimage[:], raw)
	respond(w, nil, d.Process(fsm.CmdFulfillHtlc{ID: req.ID, Preimage: preimage}))
}

type failHtlcRequest struct {
	ID     uint64 `json:"id"`
	Reason []byte `json:"reason"`
}

func rpcFailHtlcHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, _, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	var req failHtlcRequest
	if !parse(w, r, &req) {
		return
	}
	respond(w, nil, d.Process(fsm.CmdFailHtlc{ID: req.ID, Reason: req.Reason}))
}

type proposeResizeRequest struct {
	DeltaMsat lnwire.MilliSatoshi `json:"delta_msat"`
}

func rpcProposeResizeHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, _, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	var req proposeResizeRequest
	if !parse(w, r, &req) {
		return
	}
	respond(w, nil, d.Process(fsm.CmdProposeResize{DeltaMsat: req.DeltaMsat}))
}

func rpcAcceptOverrideHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, _, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	respond(w, nil, d.Process(fsm.CmdAcceptOverride{}))
}

type localSuspendRequest struct {
	Code string `json:"code"`
}

func rpcLocalSuspendHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, _, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	var req localSuspendRequest
	if !parse(w, r, &req) {
		return
	}
	respond(w, nil, d.Process(fsm.CmdLocalSuspend{Code: req.Code}))
}

type inspectResponse struct {
	State    string        `json:"state"`
	Activity []interface{} `json:"activity"`
}

func rpcInspectHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	d, channelID, ok := lookupDriver(reg, w, r)
	if !ok {
		return
	}
	resp := inspectResponse{
		State:    d.State().String(),
		Activity: reg.recentActivity(channelID),
	}
	respond(w, resp, nil)
}
