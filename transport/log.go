package transport

import "github.com/btcsuite/btclog"

// log is disabled until UseLogger installs a real backend.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
