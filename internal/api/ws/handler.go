package ws

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/netlog"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // the peer is a browser extension with its own origin
	},
}

// NetLogConfig selects where session network logs go. An empty Dir disables
// network logging.
type NetLogConfig struct {
	Dir         string
	Compression netlog.Compression
}

// Handler binds WebSocket connections to peer sessions
type Handler struct {
	hub     *peer.Hub
	builder peer.Builder
	slots   peer.Slots
	cfg     peer.Config
	netlog  NetLogConfig
	clock   clockwork.Clock
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *peer.Hub, builder peer.Builder, slots peer.Slots, cfg peer.Config, clock clockwork.Clock, logger *zap.Logger) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = peer.DefaultConfig().MaxMessageBytes
	}
	return &Handler{
		hub:     hub,
		builder: builder,
		slots:   slots,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}
}

// WithMetrics adds metrics tracking to the handler and its sessions
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// WithNetLog enables per-session network request logs
func (h *Handler) WithNetLog(cfg NetLogConfig) *Handler {
	h.netlog = cfg
	return h
}

// HandleConnection upgrades the request and serves one peer session until
// the connection drops or the session is superseded.
func (h *Handler) HandleConnection(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	// Frames beyond the ceiling terminate the connection.
	transport := newConn(wsConn, h.clock, int64(h.cfg.MaxMessageBytes)+1)

	session := peer.NewSession(transport, h.builder, h.slots, h.cfg, h.clock, h.logger).
		WithMetrics(h.metrics)
	if h.netlog.Dir != "" {
		session.WithNetLog(h.sinkFactory())
	}

	h.hub.Attach(session)
	if err := session.Accept(); err != nil {
		h.logger.Warn("Failed to accept peer", zap.Error(err))
		session.Close("accept failed")
		return
	}

	reason := h.readLoop(transport, session)
	session.Close(reason)
}

func (h *Handler) readLoop(transport *conn, session *peer.Session) string {
	for {
		data, err := transport.read()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				h.logger.Warn("Peer frame exceeds size ceiling", zap.String("session_id", session.ID()))
				return "message too large"
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Info("Peer connection lost", zap.String("session_id", session.ID()), zap.Error(err))
			}
			return "connection closed"
		}

		if err := session.Receive(data); err != nil {
			if errors.Is(err, types.ErrDisconnected) {
				return "session closed"
			}
			h.logger.Debug("Peer message rejected", zap.String("session_id", session.ID()), zap.Error(err))
		}
	}
}

func (h *Handler) sinkFactory() peer.SinkFactory {
	dir, compression := filepath.Clean(h.netlog.Dir), h.netlog.Compression
	return func(sessionID string, started time.Time) netlog.Sink {
		return netlog.NewFileSink(dir, sessionID, compression, started)
	}
}
