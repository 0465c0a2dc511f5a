// Package ws serves the peer WebSocket endpoint.
//
// Each upgraded connection becomes a peer.Session registered with the hub.
// A newer connection supersedes the current one. The handler reads frames
// and hands them to the session; outbound frames are JSON text messages
// written under a per-connection lock with a 5s write deadline. Pings every
// 30s keep the 60s read deadline moving.
//
//	router.GET("/ws/automation", ws.NewHandler(hub, catalog, corr, sessionCfg, nil, logger).
//		WithMetrics(metrics).
//		WithNetLog(ws.NetLogConfig{Dir: "network_logs"}).
//		HandleConnection)
package ws
