// Package types provides shared data structures for the extension relay.
//
// Wire Types:
//   - InboundMessage: any peer->session frame
//   - AutomationCommand, Notice, CommandErrorNotice, NetworkLogAck: session->peer frames
//   - Payload: a built EXECUTE_SCRIPT command
//
// Request Types:
//   - ExecuteRequest: caller command execution
//   - Outcome: submit result
//   - CommandInfo, CommandStats, PeerStatus: read-only views
//
// Errors:
//   - ErrNotFound, ErrInvalidParameters, ErrDisconnected, ErrTimeout, ErrProtocol
//   - PeerExecutionError: script failure reported by the peer
//
// Example Usage:
//
//	if errors.Is(err, types.ErrDisconnected) {
//	    c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": err.Error()})
//	}
package types
