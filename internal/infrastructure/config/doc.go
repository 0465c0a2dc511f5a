// Package config provides 12-factor configuration management for the relay.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags in cmd/server can override environment variables.
//
// Configuration Sections:
//   - Server: listen address, connection cap, shutdown grace period
//   - Relay: handshake, command timeouts, sweeps, retries, element waits, history
//   - Catalog: extra command files
//   - NetLog: network request log directory and compression
//   - Breaker: dispatch circuit breaker
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Relay listening on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, MAX_CONNECTIONS, SHUTDOWN_TIMEOUT
//   - HANDSHAKE_TIMEOUT, COMMAND_TIMEOUT_DEFAULT, COMMAND_TIMEOUT_MIN, COMMAND_TIMEOUT_MAX
//   - PENDING_MAX_AGE, PENDING_SWEEP_INTERVAL, RESULT_RETENTION, RESULT_SWEEP_INTERVAL
//   - MAX_MESSAGE_BYTES, NAVIGATE_ATTEMPTS, NAVIGATE_RETRY_DELAY
//   - ELEMENT_POLL_INTERVAL, ELEMENT_WAIT_MAX, HISTORY_SIZE
//   - CATALOG_FILES, NETLOG_DIR, NETLOG_COMPRESSION
//   - BREAKER_ENABLED, BREAKER_TIMEOUT_THRESHOLD, BREAKER_COOLDOWN
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
