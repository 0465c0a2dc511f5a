package peer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// Hub holds the single live session. A new connection supersedes the
// previous one.
type Hub struct {
	mu      sync.RWMutex
	current *Session
	logger  *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger}
}

// Attach makes s the live session and closes the one it replaces
func (h *Hub) Attach(s *Session) {
	s.OnClose(h.Detach)

	h.mu.Lock()
	prev := h.current
	h.current = s
	h.mu.Unlock()

	// s may have closed before it was published; its hook found nothing to clear.
	if s.State() == StateClosed {
		h.Detach(s)
	}

	if prev != nil && prev != s {
		h.logger.Info("Superseding previous session",
			zap.String("previous", prev.ID()),
			zap.String("current", s.ID()))
		prev.Close("superseded by new connection")
	}
}

// Detach clears s if it is still the live session
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == s {
		h.current = nil
	}
}

// Current returns the live session regardless of state, or nil
func (h *Hub) Current() *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Active returns the live session if it has completed the handshake
func (h *Hub) Active() (*Session, error) {
	s := h.Current()
	if s == nil {
		return nil, fmt.Errorf("no peer connected: %w", types.ErrDisconnected)
	}
	if state := s.State(); state != StatePeerActive {
		return nil, fmt.Errorf("peer session is %s: %w", state, types.ErrDisconnected)
	}
	return s, nil
}

// Status reports the live session for GET /api/peer
func (h *Hub) Status() types.PeerStatus {
	s := h.Current()
	if s == nil {
		return types.PeerStatus{State: "disconnected"}
	}
	state := s.State()
	return types.PeerStatus{
		Connected:   state == StatePeerActive,
		SessionID:   s.ID(),
		State:       state.String(),
		ExtensionID: s.ExtensionID(),
		Pending:     s.PendingCount(),
	}
}

// Close closes the live session, if any
func (h *Hub) Close(reason string) {
	if s := h.Current(); s != nil {
		s.Close(reason)
	}
}
