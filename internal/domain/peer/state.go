package peer

// State is the connection session lifecycle state
type State int32

const (
	StateCreated State = iota
	StateHandshakeAccepted
	StatePeerActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateHandshakeAccepted:
		return "handshake_accepted"
	case StatePeerActive:
		return "peer_active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
