// Package server wires the relay together and runs it.
//
// This package orchestrates all components:
//   - Configuration, logging, a dedicated Prometheus registry
//   - Command catalog (built-ins plus CATALOG_FILES)
//   - Result correlator and its retention sweep
//   - Peer hub and the /ws/automation endpoint
//   - Execution facade and the HTTP API
//   - Middleware stack (recovery, tracing, metrics, logging, CORS, rate limit)
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Build components and routes
//  3. Listen, capped at MAX_CONNECTIONS
//  4. On cancellation close the peer session and drain HTTP requests
//     within SHUTDOWN_TIMEOUT
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
