/*
Package monitoring provides metrics collection for the relay.

# Overview

This package implements Prometheus-based metrics for the HTTP surface, the
command round-trip, the correlation tables, and the peer connection.

# Features

- HTTP request metrics (latency, throughput, size)
- Command metrics (outcome, duration, retries, breaker state)
- Pending entry and result slot gauges, evictions by kind
- Peer and WebSocket connection metrics
- Network log write counts

# Usage

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "click_element")
	// ... execute ...
	timer.Stop("success")

A nil *Metrics is valid; every recording method is a no-op on it.
*/
package monitoring
