package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/domain/correlator"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/netlog"
	"github.com/GriffinCanCode/extension-relay/internal/shared/id"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// Defaults
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultPendingMaxAge    = 60 * time.Second
	DefaultSweepInterval    = 60 * time.Second
	DefaultMaxMessageBytes  = 1 << 20
)

// Sender delivers frames to the peer. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(msg interface{}) error
	Close() error
}

// Builder turns a command name and parameters into a wire payload
type Builder interface {
	Build(name string, params map[string]interface{}) (types.Payload, error)
}

// Slots is the subset of the correlator a session writes to
type Slots interface {
	Create(id string) error
	Fulfill(id string, outcome correlator.Outcome) bool
	Remove(id string) bool
}

// SinkFactory opens the network log sink for a session
type SinkFactory func(sessionID string, started time.Time) netlog.Sink

// Config holds session timing limits
type Config struct {
	HandshakeTimeout time.Duration
	PendingMaxAge    time.Duration
	SweepInterval    time.Duration
	MaxMessageBytes  int
}

// DefaultConfig returns the standard session limits
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: DefaultHandshakeTimeout,
		PendingMaxAge:    DefaultPendingMaxAge,
		SweepInterval:    DefaultSweepInterval,
		MaxMessageBytes:  DefaultMaxMessageBytes,
	}
}

// PendingEntry tracks one outstanding command
type PendingEntry struct {
	ID          string                 `json:"command_id"`
	Command     string                 `json:"command"`
	Params      map[string]interface{} `json:"params"`
	SubmittedAt time.Time              `json:"submitted_at"`
}

// Session is the state machine for one peer connection
type Session struct {
	id      string
	cfg     Config
	sender  Sender
	builder Builder
	slots   Slots
	clock   clockwork.Clock
	logger  *zap.Logger
	metrics *monitoring.Metrics
	sinks   SinkFactory

	mu          sync.Mutex
	state       State
	extensionID string
	pending     map[string]PendingEntry
	createdAt   time.Time
	activeAt    time.Time
	sink        netlog.Sink

	handshakeTimer clockwork.Timer
	sweepCancel    context.CancelFunc
	sweepDone      chan struct{}
	onClose        []func(*Session)

	sendMu    sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession creates a session in the Created state
func NewSession(sender Sender, builder Builder, slots Slots, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Session {
	defaults := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.PendingMaxAge <= 0 {
		cfg.PendingMaxAge = defaults.PendingMaxAge
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sid := uuid.NewString()
	return &Session{
		id:        sid,
		cfg:       cfg,
		sender:    sender,
		builder:   builder,
		slots:     slots,
		clock:     clock,
		logger:    logger.With(zap.String("session_id", sid)),
		state:     StateCreated,
		pending:   make(map[string]PendingEntry),
		createdAt: clock.Now(),
		closed:    make(chan struct{}),
	}
}

// WithMetrics adds metrics tracking to the session
func (s *Session) WithMetrics(metrics *monitoring.Metrics) *Session {
	s.metrics = metrics
	return s
}

// WithNetLog enables network request logging through factory
func (s *Session) WithNetLog(factory SinkFactory) *Session {
	s.sinks = factory
	return s
}

// OnClose registers fn to run once the session has closed. On a session
// that is already closed fn runs immediately.
func (s *Session) OnClose(fn func(*Session)) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		fn(s)
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ExtensionID returns the id announced by the peer hello
func (s *Session) ExtensionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensionID
}

// PendingCount returns the number of outstanding commands
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Pending returns a snapshot of the outstanding commands
func (s *Session) Pending() []PendingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingEntry, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e)
	}
	return out
}

// Done is closed once the session has fully closed
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// Accept moves Created -> HandshakeAccepted, acknowledges the connection,
// and arms the handshake timeout.
func (s *Session) Accept() error {
	s.mu.Lock()
	if s.state != StateCreated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot accept session in state %s", state)
	}
	s.state = StateHandshakeAccepted
	s.handshakeTimer = s.clock.AfterFunc(s.cfg.HandshakeTimeout, s.handshakeExpired)
	s.mu.Unlock()

	s.metrics.IncPeerSessions()
	s.logger.Info("Connection accepted, awaiting peer hello")

	if err := s.send(types.MsgConnectionEstablished, types.Notice{
		Type:      types.MsgConnectionEstablished,
		Message:   "Connected to automation relay",
		Timestamp: s.timestamp(),
	}); err != nil {
		s.Close("failed to acknowledge connection")
		return err
	}
	return nil
}

func (s *Session) handshakeExpired() {
	if s.State() != StateHandshakeAccepted {
		return
	}
	s.logger.Warn("Peer hello not received in time", zap.Duration("timeout", s.cfg.HandshakeTimeout))
	s.Close("handshake timeout")
}

// Receive routes one inbound frame. Malformed or unknown frames are logged
// and reported as ErrProtocol; no waiting caller is affected.
func (s *Session) Receive(raw []byte) error {
	if len(raw) > s.cfg.MaxMessageBytes {
		s.logger.Warn("Dropping oversized message", zap.Int("size", len(raw)))
		return fmt.Errorf("message of %d bytes exceeds %d: %w", len(raw), s.cfg.MaxMessageBytes, types.ErrProtocol)
	}

	var msg types.InboundMessage
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn("Dropping malformed message", zap.Error(err))
		s.metrics.RecordWSMessage("in", "malformed")
		return fmt.Errorf("invalid JSON: %v: %w", err, types.ErrProtocol)
	}
	s.metrics.RecordWSMessage("in", msg.Type)

	if s.State() == StateClosed {
		return fmt.Errorf("session closed: %w", types.ErrDisconnected)
	}

	switch msg.Type {
	case types.MsgExtensionConnected:
		return s.handleHello(&msg)
	case types.MsgScriptResult:
		s.handleResult(&msg)
	case types.MsgScriptError:
		s.handleError(&msg)
	case types.MsgNetworkRequest:
		s.handleNetworkRequest(&msg)
	default:
		s.logger.Warn("Unknown message type", zap.String("type", msg.Type))
		return fmt.Errorf("unknown message type %q: %w", msg.Type, types.ErrProtocol)
	}
	return nil
}

func (s *Session) handleHello(msg *types.InboundMessage) error {
	s.mu.Lock()
	switch s.state {
	case StateHandshakeAccepted, StatePeerActive:
	default:
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("Peer hello in unexpected state", zap.Stringer("state", state))
		return fmt.Errorf("peer hello in state %s: %w", state, types.ErrProtocol)
	}

	restarted := s.state == StatePeerActive
	stale := s.drainPendingLocked()
	s.extensionID = msg.ExtensionID()
	s.state = StatePeerActive
	s.activeAt = s.clock.Now()
	if s.handshakeTimer != nil {
		s.handshakeTimer.Stop()
		s.handshakeTimer = nil
	}
	if !restarted {
		ctx, cancel := context.WithCancel(context.Background())
		s.sweepCancel = cancel
		s.sweepDone = make(chan struct{})
		go s.runSweep(ctx, s.sweepDone)
	}
	s.mu.Unlock()

	s.failAll(stale, fmt.Errorf("peer restarted: %w", types.ErrDisconnected), monitoring.EvictDisconnect)
	s.metrics.SetPeerConnected(true)
	s.logger.Info("Peer connected",
		zap.String("extension_id", msg.ExtensionID()),
		zap.Bool("restarted", restarted),
		zap.Int("cleared", len(stale)))

	return s.send(types.MsgConnectionConfirmed, types.Notice{
		Type:      types.MsgConnectionConfirmed,
		Message:   "Connection established successfully",
		Timestamp: s.timestamp(),
	})
}

func (s *Session) handleResult(msg *types.InboundMessage) {
	if msg.CommandID == "" {
		s.logger.Warn("Script result without command id")
		return
	}
	if !s.takePending(msg.CommandID) {
		s.logger.Warn("Result for unknown command", zap.String("command_id", msg.CommandID))
		return
	}

	s.slots.Fulfill(msg.CommandID, correlator.Outcome{Value: unwrapResult(msg.Result)})
	s.logger.Debug("Script result received", zap.String("command_id", msg.CommandID))
}

func (s *Session) handleError(msg *types.InboundMessage) {
	if msg.CommandID == "" {
		s.logger.Warn("Script error without command id", zap.String("error", msg.Error))
		return
	}

	s.logger.Warn("Script execution failed",
		zap.String("command_id", msg.CommandID),
		zap.String("error", msg.Error),
		zap.String("stack", msg.Stack))

	if s.takePending(msg.CommandID) {
		s.slots.Fulfill(msg.CommandID, correlator.Outcome{Err: types.NewPeerExecutionError(msg.Error, msg.Stack)})
	} else {
		s.logger.Warn("Error for unknown command", zap.String("command_id", msg.CommandID))
	}

	if err := s.send(types.MsgCommandError, types.CommandErrorNotice{
		Type:      types.MsgCommandError,
		CommandID: msg.CommandID,
		Error:     msg.Error,
		Timestamp: s.timestamp(),
	}); err != nil {
		s.logger.Warn("Failed to echo command error", zap.Error(err))
	}
}

func (s *Session) handleNetworkRequest(msg *types.InboundMessage) {
	ts := msg.Timestamp
	if ts == nil {
		ts = s.timestamp()
	}

	var requestID string
	if v, ok := msg.Data["requestId"]; ok && v != nil {
		requestID = fmt.Sprint(v)
	}

	err := s.appendNetlog(netlog.Record{Timestamp: ts, Event: msg.Event, Data: msg.Data})
	if err != nil {
		s.metrics.RecordNetlog("error")
		s.logger.Warn("Failed to log network request", zap.Error(err))
		_ = s.send(types.MsgNetworkLogError, types.NetworkLogAck{Type: types.MsgNetworkLogError, Error: err.Error()})
		return
	}

	s.metrics.RecordNetlog("logged")
	_ = s.send(types.MsgNetworkLogConfirmation, types.NetworkLogAck{
		Type:      types.MsgNetworkLogConfirmation,
		RequestID: requestID,
		Status:    "logged",
	})
}

func (s *Session) appendNetlog(rec netlog.Record) error {
	s.mu.Lock()
	if s.sink == nil {
		if s.sinks == nil {
			s.mu.Unlock()
			return fmt.Errorf("network logging is disabled")
		}
		s.sink = s.sinks(s.id, s.createdAt)
	}
	sink := s.sink
	s.mu.Unlock()

	return sink.Append(rec)
}

// Dispatch builds the named command, records a pending entry and result
// slot, and sends it to the peer. It returns the correlation id.
func (s *Session) Dispatch(name string, params map[string]interface{}) (string, error) {
	if state := s.State(); state != StatePeerActive {
		return "", fmt.Errorf("session is %s: %w", state, types.ErrDisconnected)
	}

	payload, err := s.builder.Build(name, params)
	if err != nil {
		return "", err
	}

	cid := id.NewCommandID().String()

	s.mu.Lock()
	if s.state != StatePeerActive {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("session is %s: %w", state, types.ErrDisconnected)
	}
	if err := s.slots.Create(cid); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.pending[cid] = PendingEntry{ID: cid, Command: name, Params: params, SubmittedAt: s.clock.Now()}
	count := len(s.pending)
	s.mu.Unlock()
	s.metrics.SetPendingEntries(count)

	err = s.send(types.MsgAutomationCommand, types.AutomationCommand{
		Type: types.MsgAutomationCommand,
		Command: types.CommandFrame{
			Type:      payload.Type,
			Script:    payload.Script,
			CommandID: cid,
		},
		Timestamp: s.timestamp(),
	})
	if err != nil {
		s.takePending(cid)
		s.slots.Remove(cid)
		s.logger.Warn("Failed to send command", zap.String("command", name), zap.Error(err))
		return "", fmt.Errorf("send %s: %v: %w", name, err, types.ErrDisconnected)
	}

	s.logger.Debug("Command sent",
		zap.String("command", name),
		zap.String("command_id", cid),
		zap.String("script", payload.Script))
	return cid, nil
}

// RemovePending drops the pending entry for id if it is still present
func (s *Session) RemovePending(id string) bool {
	return s.takePending(id)
}

func (s *Session) takePending(id string) bool {
	s.mu.Lock()
	_, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	count := len(s.pending)
	s.mu.Unlock()

	if ok {
		s.metrics.SetPendingEntries(count)
	}
	return ok
}

// Sweep fails and evicts pending entries older than the max age
func (s *Session) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	var expired []PendingEntry
	for cid, e := range s.pending {
		if now.Sub(e.SubmittedAt) > s.cfg.PendingMaxAge {
			expired = append(expired, e)
			delete(s.pending, cid)
		}
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.logger.Info("Evicted stale pending commands", zap.Int("count", len(expired)))
	}
	s.failAll(expired, fmt.Errorf("command timed out after %s: %w", s.cfg.PendingMaxAge, types.ErrTimeout), monitoring.EvictPendingAge)
	return len(expired)
}

func (s *Session) runSweep(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := s.clock.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Close fails every pending entry with ErrDisconnected, stops the sweep and
// waits for it, runs close hooks, and closes the transport. Safe to call
// more than once.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateClosed
		stale := s.drainPendingLocked()
		cancel, done := s.sweepCancel, s.sweepDone
		timer := s.handshakeTimer
		sink := s.sink
		hooks := s.onClose
		s.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		if cancel != nil {
			cancel()
			<-done
		}

		s.failAll(stale, fmt.Errorf("%s: %w", reason, types.ErrDisconnected), monitoring.EvictDisconnect)
		if prev == StatePeerActive {
			s.metrics.SetPeerConnected(false)
		}
		if sink != nil {
			if err := sink.Close(); err != nil {
				s.logger.Warn("Failed to close network log", zap.Error(err))
			}
		}
		for _, fn := range hooks {
			fn(s)
		}
		if err := s.sender.Close(); err != nil {
			s.logger.Debug("Transport close", zap.Error(err))
		}

		s.logger.Info("Session closed",
			zap.String("reason", reason),
			zap.Stringer("previous_state", prev),
			zap.Int("failed_pending", len(stale)))
		close(s.closed)
	})
}

func (s *Session) drainPendingLocked() []PendingEntry {
	if len(s.pending) == 0 {
		return nil
	}
	out := make([]PendingEntry, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e)
	}
	s.pending = make(map[string]PendingEntry)
	return out
}

func (s *Session) failAll(entries []PendingEntry, err error, kind string) {
	for _, e := range entries {
		s.slots.Fulfill(e.ID, correlator.Outcome{Err: err})
	}
	if len(entries) > 0 {
		s.metrics.RecordEviction(kind, len(entries))
		s.metrics.SetPendingEntries(s.PendingCount())
	}
}

func (s *Session) send(msgType string, msg interface{}) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := s.sender.Send(msg); err != nil {
		return err
	}
	s.metrics.RecordWSMessage("out", msgType)
	return nil
}

func (s *Session) timestamp() string {
	return s.clock.Now().Format(time.RFC3339Nano)
}

// unwrapResult decodes a result that arrives as a JSON-encoded string and
// keeps anything else as-is.
func unwrapResult(result interface{}) interface{} {
	str, ok := result.(string)
	if !ok {
		return result
	}
	var decoded interface{}
	if err := sonic.UnmarshalString(str, &decoded); err != nil {
		return result
	}
	return decoded
}
