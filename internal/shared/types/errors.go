package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the catalog, correlator, session and facade.
// Components wrap these with fmt.Errorf("...: %w", err); callers classify
// with errors.Is / errors.As.
var (
	// ErrNotFound reports an unknown command name or an absent result slot.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameters reports a parameter contract violation.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrDisconnected reports that no peer is active or that it dropped mid-flight.
	ErrDisconnected = errors.New("peer disconnected")
	// ErrTimeout reports that no result arrived within the allowed window.
	ErrTimeout = errors.New("timeout")
	// ErrProtocol reports a malformed or unroutable inbound peer message.
	ErrProtocol = errors.New("protocol error")
)

// PeerExecutionError is a script failure reported by the peer. Message is
// propagated verbatim.
type PeerExecutionError struct {
	Message string
	Stack   string
}

func (e *PeerExecutionError) Error() string {
	return e.Message
}

// NewPeerExecutionError creates a peer execution error.
func NewPeerExecutionError(message, stack string) *PeerExecutionError {
	return &PeerExecutionError{Message: message, Stack: stack}
}

// ErrorKind returns a short label for err, used in metrics and history.
func ErrorKind(err error) string {
	var peerErr *PeerExecutionError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &peerErr):
		return "peer_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, ErrDisconnected):
		return "disconnected"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "error"
	}
}

// InvalidParams wraps ErrInvalidParameters with a formatted reason.
func InvalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
