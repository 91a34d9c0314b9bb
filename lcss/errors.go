package lcss

import "errors"

var (
	errTooManyHtlcs         = errors.New("lcss: incoming+outgoing htlcs exceed maxAcceptedHtlcs")
	errBalanceMismatch      = errors.New("lcss: local + remote + in-flight != capacity")
	errUnknownUpdateMessage = errors.New("lcss: update message is not an add, fulfill, or fail")
	errHtlcNotFound         = errors.New("lcss: no htlc with that id to resolve")
)
