package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Eviction kinds
const (
	EvictPendingAge    = "pending_age"
	EvictSlotRetention = "slot_retention"
	EvictDisconnect    = "disconnect"
)

// Metrics holds all Prometheus metrics. Every recording method is safe on a
// nil receiver so components can run without a collector.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	CommandRetries  *prometheus.CounterVec
	BreakerState    prometheus.Gauge

	// Correlation metrics
	PendingEntries prometheus.Gauge
	ResultSlots    prometheus.Gauge
	Evictions      *prometheus.CounterVec

	// Peer metrics
	PeerConnected prometheus.Gauge
	PeerSessions  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Network log metrics
	NetlogRecords *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalCommands   int64
	FailedCommands  int64
	PeerConnected   bool
	TotalDuration   float64 // sum of all request durations
	RequestCount    int64   // count for averaging
	CommandDuration float64 // sum of all command durations
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Command metrics
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_commands_total",
				Help: "Total number of executed commands by outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_command_duration_seconds",
				Help:    "Command round-trip duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"command"},
		),
		CommandRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_command_retries_total",
				Help: "Total number of command retry attempts",
			},
			[]string{"command"},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_breaker_state",
				Help: "Dispatch circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),

		// Correlation metrics
		PendingEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_pending_entries",
				Help: "Number of outstanding pending entries",
			},
		),
		ResultSlots: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_result_slots",
				Help: "Number of live result slots",
			},
		),
		Evictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_evictions_total",
				Help: "Total number of evicted pending entries and result slots",
			},
			[]string{"kind"},
		),

		// Peer metrics
		PeerConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_peer_connected",
				Help: "1 when a peer has completed the handshake",
			},
		),
		PeerSessions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_peer_sessions_total",
				Help: "Total number of peer sessions accepted",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		NetlogRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_netlog_records_total",
				Help: "Total number of network log records",
			},
			[]string{"status"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_uptime_seconds",
			Help: "Relay uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCommand records a finished command execution
func (m *Metrics) RecordCommand(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCommands++
	m.snapshot.CommandDuration += duration.Seconds()
	if outcome != "success" {
		m.snapshot.FailedCommands++
	}
	m.mu.Unlock()
}

// RecordRetry records a retried command attempt
func (m *Metrics) RecordRetry(command string) {
	if m == nil {
		return
	}
	m.CommandRetries.WithLabelValues(command).Inc()
}

// SetBreakerState records the dispatch breaker state
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

// SetPendingEntries sets the number of outstanding pending entries
func (m *Metrics) SetPendingEntries(count int) {
	if m == nil {
		return
	}
	m.PendingEntries.Set(float64(count))
}

// SetResultSlots sets the number of live result slots
func (m *Metrics) SetResultSlots(count int) {
	if m == nil {
		return
	}
	m.ResultSlots.Set(float64(count))
}

// RecordEviction records evicted entries of the given kind
func (m *Metrics) RecordEviction(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.Evictions.WithLabelValues(kind).Add(float64(count))
}

// SetPeerConnected records whether a peer is active
func (m *Metrics) SetPeerConnected(connected bool) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	m.PeerConnected.Set(v)

	m.mu.Lock()
	m.snapshot.PeerConnected = connected
	m.mu.Unlock()
}

// IncPeerSessions increments the accepted peer sessions counter
func (m *Metrics) IncPeerSessions() {
	if m == nil {
		return
	}
	m.PeerSessions.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordNetlog records a network log write
func (m *Metrics) RecordNetlog(status string) {
	if m == nil {
		return
	}
	m.NetlogRecords.WithLabelValues(status).Inc()
}
