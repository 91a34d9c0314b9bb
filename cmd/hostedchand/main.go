// Command hostedchand runs a hosted-channel client or host process: it
// loads a node key and a list of peers, drives one fsm.Driver per
// channel, and exposes both the peer-facing wire endpoint and a local
// operator RPC, the same three-piece shape cmd/mbserver splits into its
// ServerState, rpcHandler, and block-watcher goroutine.
package main

import (
	"encoding/hex"
	"flag"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/rorp/immortan/env"
	"github.com/rorp/immortan/fsm"
	"github.com/rorp/immortan/rescue"
	"github.com/rorp/immortan/store"
	"github.com/rorp/immortan/transport"
)

var (
	listenAddr   = flag.String("listen", ":4230", "Address the peer and RPC endpoints listen on")
	dbPath       = flag.String("db", "hostedchand.db", "Path to the bbolt channel-state database")
	nodeKeyHex   = flag.String("node_key", "", "Hex-encoded 32-byte node private key")
	peersPath    = flag.String("peers", "peers.json", "Path to the JSON peer configuration file")
	rescuePeers  = flag.String("rescue_peers", "", "Comma-separated PHC-sync peer URLs used for preimage rescue")
	chainHashHex = flag.String("chain_hash", strings.Repeat("00", 32), "Hex-encoded 32-byte chain hash this channel set is pinned to")
	blockTick    = flag.Duration("block_tick_interval", time.Minute, "How often to re-evaluate BlockTick across every open channel")
	logLevel     = flag.String("log_level", "info", "btclog level: trace, debug, info, warn, error, critical, off")
)

func main() {
	flag.Parse()
	initLogging(*logLevel)

	privBytes, err := hex.DecodeString(*nodeKeyHex)
	if err != nil || len(privBytes) != 32 {
		log.Fatal("node_key must be 32 hex-encoded bytes")
	}
	priv, _ := btcec.PrivKeyFromBytes(privBytes)
	signer := newNodeSigner(priv)

	var chainHash [32]byte
	chainHashBytes, err := hex.DecodeString(*chainHashHex)
	if err != nil || len(chainHashBytes) != 32 {
		log.Fatal("chain_hash must be 32 hex-encoded bytes")
	}
	copy(chainHash[:], chainHashBytes)

	backend, err := kvdb.Create(
		kvdb.BoltBackendName, *dbPath, true, kvdb.DefaultDBTimeout, false,
	)
	if err != nil {
		log.Fatalf("opening %s: %v", *dbPath, err)
	}
	st, err := store.NewKVStore(backend)
	if err != nil {
		log.Fatalf("initializing the channel store: %v", err)
	}

	peers, err := loadPeers(*peersPath)
	if err != nil {
		log.Fatalf("loading %s: %v", *peersPath, err)
	}

	var checker rescue.Checker = noopChecker{}
	if *rescuePeers != "" {
		checker = rescue.NewClient(strings.Split(*rescuePeers, ","))
	}

	blocks := newPollingBlockSource()

	e := env.Env{
		Signer: signer,
		Blocks: blocks,
		Bounds: env.DefaultInitBounds,
	}

	reg := newRegistry()
	httpClient := &http.Client{Timeout: 30 * time.Second}

	for _, p := range peers {
		remoteInfo, err := p.remoteInfo()
		if err != nil {
			log.Fatalf("peer %s: %v", p.NodeID, err)
		}
		refundScript, err := p.refundScript()
		if err != nil {
			log.Fatalf("peer %s: refund_script_pub_key: %v", p.NodeID, err)
		}

		sender := transport.NewSender(httpClient, p.Endpoint)
		d, err := fsm.NewDriver(e, st, sender, checker, reg, remoteInfo, chainHash, refundScript)
		if err != nil {
			log.Fatalf("peer %s: %v", p.NodeID, err)
		}

		channelID := remoteInfo.ChannelID()
		reg.add(channelID, d)

		if err := d.Process(fsm.CmdSocketOnline{}); err != nil {
			log.Printf("channel %x: CmdSocketOnline: %v", channelID, err)
		}
	}

	go broadcastBlockTicks(reg, blocks, *blockTick)

	http.HandleFunc("/peer", func(w http.ResponseWriter, r *http.Request) {
		peerHandler(reg, w, r)
	})
	http.HandleFunc("/rpc/add", func(w http.ResponseWriter, r *http.Request) { rpcAddHtlcHandler(reg, w, r) })
	http.HandleFunc("/rpc/fulfill", func(w http.ResponseWriter, r *http.Request) { rpcFulfillHtlcHandler(reg, w, r) })
	http.HandleFunc("/rpc/fail", func(w http.ResponseWriter, r *http.Request) { rpcFailHtlcHandler(reg, w, r) })
	http.HandleFunc("/rpc/resize", func(w http.ResponseWriter, r *http.Request) { rpcProposeResizeHandler(reg, w, r) })
	http.HandleFunc("/rpc/accept_override", func(w http.ResponseWriter, r *http.Request) { rpcAcceptOverrideHandler(reg, w, r) })
	http.HandleFunc("/rpc/suspend", func(w http.ResponseWriter, r *http.Request) { rpcLocalSuspendHandler(reg, w, r) })
	http.HandleFunc("/rpc/inspect", func(w http.ResponseWriter, r *http.Request) { rpcInspectHandler(reg, w, r) })

	fullAddr := *listenAddr
	if strings.HasPrefix(fullAddr, ":") {
		fullAddr = "127.0.0.1" + fullAddr
	}
	log.Printf("listening on http://%s (db %s)", fullAddr, filepath.Clean(*dbPath))
	log.Fatal(http.ListenAndServe(*listenAddr, nil))
}

// broadcastBlockTicks drives every open channel's expiry sweep off one
// shared ticker rather than a per-channel timer, since BlockTick only
// needs the current tip and every Driver serializes its own Process
// calls independently.
func broadcastBlockTicks(reg *registry, blocks *pollingBlockSource, interval time.Duration) {
	t := ticker.New(interval)
	t.Resume()
	defer t.Stop()

	for range t.Ticks() {
		tip := blocks.CurrentBlockCount()
		for _, channelID := range reg.channels() {
			d, ok := reg.get(channelID)
			if !ok {
				continue
			}
			if err := d.Process(fsm.BlockTick{Tip: tip}); err != nil {
				log.Printf("channel %x: BlockTick: %v", channelID, err)
			}
		}
	}
}
