package monitoring

import "time"

// Snapshot returns a copy of the tracked values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Summary renders the snapshot as a JSON-friendly map
func (m *Metrics) Summary() map[string]interface{} {
	s := m.Snapshot()

	avgRequest := 0.0
	if s.RequestCount > 0 {
		avgRequest = s.TotalDuration / float64(s.RequestCount)
	}
	avgCommand := 0.0
	if s.TotalCommands > 0 {
		avgCommand = s.CommandDuration / float64(s.TotalCommands)
	}

	uptime := time.Duration(0)
	if m != nil {
		uptime = time.Since(m.startTime)
	}

	return map[string]interface{}{
		"uptime_seconds":      int64(uptime.Seconds()),
		"requests_total":      s.TotalRequests,
		"requests_errors":     s.TotalErrors,
		"request_avg_seconds": avgRequest,
		"commands_total":      s.TotalCommands,
		"commands_failed":     s.FailedCommands,
		"command_avg_seconds": avgCommand,
		"peer_connected":      s.PeerConnected,
	}
}
