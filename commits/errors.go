package commits

import "fmt"

// TransitionError is a fatal protocol violation: invalid signature,
// impossible balance, counter regression, an unknown HTLC id referenced
// by a fail, and similar. It is never safe to hand to a peer verbatim.
// Driver.Process returns it unchanged to its caller; the driver does not
// suspend the channel over it on its own (spec.md §7, "Protocol-
// violation (fatal per channel)").
type TransitionError struct {
	ChannelID [32]byte
	Msg       string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("channel %x: transition failed: %s", e.ChannelID, e.Msg)
}

// NewTransitionError builds a TransitionError for channel id.
func NewTransitionError(channelID [32]byte, msg string) *TransitionError {
	return &TransitionError{ChannelID: channelID, Msg: msg}
}

// SuspendError wraps one of the hostedwire.ERR_HOSTED_* codes as an
// error value. The driver's own local suspends (spec.md §7, "Local-suspend
// (non-fatal, manual recovery)") take the code string directly and do not
// construct a SuspendError.
type SuspendError struct {
	Code string
}

func (e *SuspendError) Error() string {
	return "local suspend: " + e.Code
}

// NewSuspendError wraps code as a SuspendError.
func NewSuspendError(code string) *SuspendError {
	return &SuspendError{Code: code}
}

// PeerError is an error explicitly safe to place in a Fail.Data wire
// field, the generalization of receiver/errors.go's ExposableError from
// "text safe to show a payer" to "text safe to show our hosted-channel
// peer".
type PeerError struct {
	msg string
}

// NewPeerError wraps msg as a PeerError.
func NewPeerError(msg string) PeerError {
	return PeerError{msg: msg}
}

func (e PeerError) Error() string {
	return e.msg
}

// AddRejectReason classifies why sendAdd/receiveAdd declined an HTLC
// (spec.md §4.3). The driver surfaces these as addRejectedLocally events
// without ever constructing a TransitionError for them: a rejected add
// is an expected outcome, not a protocol violation.
type AddRejectReason int

const (
	// ChannelNotAbleToSend covers every structural reason an add
	// cannot be sent right now: wrong state, below htlcMinimumMsat,
	// over the in-flight value or count caps, insufficient projected
	// balance, or too close to the cltv safety delta.
	ChannelNotAbleToSend AddRejectReason = iota
	// InPrincipleNotSendable marks an add that expired without a
	// confirmed preimage rescue (spec.md §4.4).
	InPrincipleNotSendable
)

// RejectError is returned by AddLocal, SettleLocal, and FailLocal when
// the requested command cannot be carried out right now. It is never a
// protocol violation and never causes a suspend: the driver returns it to
// the caller of Process, and for an AddLocal rejection also reports
// addRejectedLocally (spec.md §4.3).
type RejectError struct {
	Reason AddRejectReason
}

func (e *RejectError) Error() string {
	return e.Reason.String()
}

func (r AddRejectReason) String() string {
	switch r {
	case ChannelNotAbleToSend:
		return "channel not able to send"
	case InPrincipleNotSendable:
		return "in principle not sendable"
	default:
		return "unknown reject reason"
	}
}
