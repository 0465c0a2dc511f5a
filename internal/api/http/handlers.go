package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/domain/command"
	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/domain/relay"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/monitoring"
)

// Service identity reported by the health endpoints
const (
	ServiceName    = "extension-relay"
	ServiceVersion = "0.3.0"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	exec    *relay.Executor
	hub     *peer.Hub
	loader  *command.Loader
	clock   clockwork.Clock
	started time.Time
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHandlers creates a new handler set. loader may be nil, in which case
// reload restores the built-in catalog.
func NewHandlers(exec *relay.Executor, hub *peer.Hub, loader *command.Loader, clock clockwork.Clock, logger *zap.Logger) *Handlers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		exec:    exec,
		hub:     hub,
		loader:  loader,
		clock:   clock,
		started: clock.Now(),
		logger:  logger,
	}
}

// WithMetrics adds metrics to the health report
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Register mounts every API route on router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		commands := api.Group("/commands")
		commands.POST("/execute", h.Execute)
		commands.GET("/list", h.ListCommands)
		commands.GET("/history", h.History)
		commands.DELETE("/history", h.ClearHistory)
		commands.GET("/stats", h.Stats)
		commands.DELETE("/stats", h.ResetStats)
		commands.POST("/reload", h.Reload)

		api.GET("/storage/data", h.StorageData)
		api.GET("/peer", h.Peer)
	}
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": ServiceName,
		"version": ServiceVersion,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	peerStatus := h.hub.Status()
	body := gin.H{
		"status":   "healthy",
		"service":  ServiceName,
		"version":  ServiceVersion,
		"uptime":   h.clock.Since(h.started).Seconds(),
		"peer":     peerStatus,
		"commands": h.exec.Catalog().Count(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Summary()
	}
	c.JSON(http.StatusOK, body)
}

// Peer reports the live peer session
func (h *Handlers) Peer(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"peer":   h.hub.Status(),
	})
}

func (h *Handlers) timestamp() string {
	return h.clock.Now().Format(time.RFC3339)
}
