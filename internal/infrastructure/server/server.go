package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/extension-relay/internal/api/http"
	"github.com/GriffinCanCode/extension-relay/internal/api/middleware"
	"github.com/GriffinCanCode/extension-relay/internal/api/ws"
	"github.com/GriffinCanCode/extension-relay/internal/domain/command"
	"github.com/GriffinCanCode/extension-relay/internal/domain/correlator"
	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/domain/relay"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/config"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/logging"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/netlog"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	clock    clockwork.Clock
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	catalog *command.Catalog
	loader  *command.Loader
	corr    *correlator.Correlator
	hub     *peer.Hub
	exec    *relay.Executor
	router  *gin.Engine

	httpServer *http.Server
	closeOnce  sync.Once
}

// NewServer creates a server from cfg with a logger built from its logging
// section.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return New(cfg, logger, clockwork.NewRealClock())
}

// New wires every component of the relay
func New(cfg *config.Config, logger *logging.Logger, clock clockwork.Clock) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	compression, err := netlog.ParseCompression(cfg.NetLog.Compression)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing extension relay",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_connections", cfg.Server.MaxConnections),
		zap.String("catalog_files", cfg.Catalog.Files),
	)

	// Metrics first, everything below records into them
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	tracer := tracing.NewWithClock(apihttp.ServiceName, logger.Component("tracing"), clock)

	catalog := command.NewDefaultCatalog()
	loader := command.NewLoader(cfg.Catalog.Files, logger.Component("catalog"))
	if cfg.Catalog.Files != "" {
		count, err := loader.Reload(catalog)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to load catalog files: %w", err)
		}
		logger.Info("Catalog loaded", zap.Int("commands", count))
	}

	corr := correlator.New(clock, cfg.Relay.ResultRetention, logger.Component("correlator")).WithMetrics(metrics)
	hub := peer.NewHub(logger.Component("hub"))
	history := relay.NewHistory(cfg.Relay.HistorySize, clock)
	exec := relay.NewExecutor(catalog, hub, corr, history, cfg.Executor(), clock, logger.Component("executor")).
		WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		rl.Clock = clock
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(exec, hub, loader, clock, logger.Component("api")).WithMetrics(metrics)
	handlers.Register(router)

	wsHandler := ws.NewHandler(hub, catalog, corr, cfg.Session(), clock, logger.Component("session")).
		WithMetrics(metrics).
		WithNetLog(ws.NetLogConfig{Dir: cfg.NetLog.Dir, Compression: compression})
	router.GET("/ws/automation", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	logger.Info("Server initialized successfully", zap.Int("commands", catalog.Count()))

	return &Server{
		config:   cfg,
		logger:   logger,
		clock:    clock,
		registry: registry,
		metrics:  metrics,
		tracer:   tracer,
		catalog:  catalog,
		loader:   loader,
		corr:     corr,
		hub:      hub,
		exec:     exec,
		router:   router,
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: cfg.Relay.HandshakeTimeout,
		},
	}, nil
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Executor returns the execution facade
func (s *Server) Executor() *relay.Executor {
	return s.exec
}

// Hub returns the peer hub
func (s *Server) Hub() *peer.Hub {
	return s.hub
}

// Run listens on the configured address and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, capped at MAX_CONNECTIONS, until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.Server.MaxConnections)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.corr.Run(sweepCtx, s.config.Relay.ResultSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, closes the peer session, and waits for
// in-flight requests up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	// Hijacked WebSocket connections are not tracked by http.Server
	s.hub.Close("server shutdown")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	s.Close()
	return err
}

// Close releases background resources. Safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.hub.Close("server closed")
		s.tracer.Close()
		_ = s.logger.Sync()
	})
}
