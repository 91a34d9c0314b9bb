package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rorp/immortan/fsm"
)

// peerHandler is the inbound counterpart to transport.Sender: a remote
// host or client posts an envelope of wire messages for one channel and
// this handler feeds each one through the matching Driver in order.
func peerHandler(reg *registry, w http.ResponseWriter, r *http.Request) {
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		http.Error(w, "json parse error", http.StatusBadRequest)
		return
	}

	d, ok := reg.get(env.ChannelID)
	if !ok {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	for _, me := range env.Messages {
		msg, err := decodeMessage(me)
		if err != nil {
			log.Warnf("channel %x: %v", env.ChannelID, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := d.Process(fsm.Received{Msg: msg}); err != nil {
			if err == fsm.ErrDisconnect {
				log.Infof("channel %x: disconnecting after %T", env.ChannelID, msg)
				http.Error(w, "disconnect", http.StatusGone)
				return
			}
			log.Warnf("channel %x: processing %T: %v", env.ChannelID, msg, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}
