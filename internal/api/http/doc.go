// Package http exposes the relay to callers over HTTP.
//
// Routes:
//
//	POST   /api/commands/execute   run a command
//	GET    /api/commands/list      catalog (?type=dom|navigation|storage, ?format=simple|full)
//	GET    /api/commands/history   execution history (?command ?status ?from ?to ?limit)
//	DELETE /api/commands/history   clear history (?command ?before)
//	GET    /api/commands/stats     statistics (?command ?range=1h|24h|7d|30d)
//	DELETE /api/commands/stats     reset statistics (?command)
//	POST   /api/commands/reload    rebuild the catalog
//	GET    /api/storage/data       page storage (?type ?keys ?timeout)
//	GET    /api/peer               peer session status
//	GET    /health                 health report
//
// Errors map onto status codes: unknown command 404, invalid parameters 400,
// timeout 408, no peer 503, peer script failure 500 with the peer's message
// in "error".
package http
