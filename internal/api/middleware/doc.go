// Package middleware provides the HTTP middleware stack for the relay.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting
//   - Recovery: Panic recovery with a JSON error response
//   - Logger: Request logging through zap, tagged with the trace id
//
// Rate Limiting:
//   - Per-IP tracking, idle clients are pruned after IdleTTL
//   - Token bucket algorithm (golang.org/x/time/rate)
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
