package main

import (
	"os"

	"github.com/btcsuite/btclog"

	"github.com/rorp/immortan/fsm"
	"github.com/rorp/immortan/rescue"
	"github.com/rorp/immortan/store"
	"github.com/rorp/immortan/transport"
)

// log is this package's own subsystem logger, the HCHD counterpart to
// every library package's disabled-until-wired btclog.Logger.
var log btclog.Logger = btclog.Disabled

func initLogging(levelStr string) {
	backend := btclog.NewBackend(os.Stdout)
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		level = btclog.LevelInfo
	}

	setup := func(subsystem string) btclog.Logger {
		l := backend.Logger(subsystem)
		l.SetLevel(level)
		return l
	}

	log = setup("HCHD")
	fsm.UseLogger(setup("FSM"))
	store.UseLogger(setup("STOR"))
	transport.UseLogger(setup("XPRT"))
	rescue.UseLogger(setup("RESQ"))
}
