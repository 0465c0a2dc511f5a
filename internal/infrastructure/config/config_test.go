package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "1234", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:1234", cfg.Server.Addr())
	assert.Equal(t, 256, cfg.Server.MaxConnections)

	// Relay config
	assert.Equal(t, 30*time.Second, cfg.Relay.HandshakeTimeout)
	assert.Equal(t, 10*time.Second, cfg.Relay.CommandTimeout)
	assert.Equal(t, 1<<20, cfg.Relay.MaxMessageBytes)
	assert.Equal(t, 3, cfg.Relay.NavigateAttempts)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                      "9000",
		"HOST":                      "127.0.0.1",
		"HANDSHAKE_TIMEOUT":         "5s",
		"COMMAND_TIMEOUT_DEFAULT":   "20s",
		"RESULT_RETENTION":          "10m",
		"CATALOG_FILES":             "commands/**/*.yaml",
		"NETLOG_COMPRESSION":        "zstd",
		"BREAKER_ENABLED":           "true",
		"BREAKER_TIMEOUT_THRESHOLD": "3",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
		"RATE_LIMIT_RPS":            "500",
		"RATE_LIMIT_BURST":          "1000",
		"RATE_LIMIT_ENABLED":        "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Relay.HandshakeTimeout)
	assert.Equal(t, 20*time.Second, cfg.Relay.CommandTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Relay.ResultRetention)
	assert.Equal(t, "commands/**/*.yaml", cfg.Catalog.Files)
	assert.Equal(t, "zstd", cfg.NetLog.Compression)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(3), cfg.Breaker.TimeoutThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	// Untouched values keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Relay.PendingMaxAge)
	assert.Equal(t, "network_logs", cfg.NetLog.Dir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unparseable duration", map[string]string{"HANDSHAKE_TIMEOUT": "soon"}},
		{"max below min", map[string]string{"COMMAND_TIMEOUT_MIN": "5s", "COMMAND_TIMEOUT_MAX": "2s"}},
		{"default outside range", map[string]string{"COMMAND_TIMEOUT_DEFAULT": "2m"}},
		{"no navigate attempts", map[string]string{"NAVIGATE_ATTEMPTS": "0"}},
		{"unknown compression", map[string]string{"NETLOG_COMPRESSION": "brotli"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestDerivedSettings(t *testing.T) {
	cfg := Default()

	session := cfg.Session()
	assert.Equal(t, 30*time.Second, session.HandshakeTimeout)
	assert.Equal(t, 60*time.Second, session.PendingMaxAge)
	assert.Equal(t, 1<<20, session.MaxMessageBytes)

	exec := cfg.Executor()
	assert.Equal(t, time.Second, exec.MinTimeout)
	assert.Equal(t, 60*time.Second, exec.MaxTimeout)
	assert.Equal(t, 500*time.Millisecond, exec.ElementPollInterval)
	assert.False(t, exec.BreakerEnabled)
	assert.Equal(t, uint32(5), exec.BreakerThreshold)
}
