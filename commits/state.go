package commits

// ChannelState is the finite set of states a hosted channel moves
// through (spec.md §4.5). It mirrors the shape of
// channels.Status.String() in the teacher: an int-backed enum with a
// human-readable Stringer for logs.
type ChannelState int

const (
	Initial ChannelState = iota
	WaitForInit
	WaitForAccept
	// WaitForStateUpdate is entered once we've signed and sent our
	// initial StateUpdate in response to InitHostedChannel; it ends
	// when the host's matching StateUpdate reply lands (spec.md §4.5).
	WaitForStateUpdate
	Open
	Sleeping
)

func (s ChannelState) String() string {
	switch s {
	case Initial:
		return "INITIAL"
	case WaitForInit:
		return "WAIT_FOR_INIT"
	case WaitForAccept:
		return "WAIT_FOR_ACCEPT"
	case WaitForStateUpdate:
		return "WAIT_FOR_STATE_UPDATE"
	case Open:
		return "OPEN"
	case Sleeping:
		return "SLEEPING"
	default:
		return "UNKNOWN"
	}
}
