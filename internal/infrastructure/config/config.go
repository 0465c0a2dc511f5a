package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/domain/relay"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/netlog"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Relay     RelayConfig
	Catalog   CatalogConfig
	NetLog    NetLogConfig
	Breaker   BreakerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"1234"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	MaxConnections  int           `envconfig:"MAX_CONNECTIONS" default:"256"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// RelayConfig holds session, correlation and execution limits.
type RelayConfig struct {
	HandshakeTimeout     time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"30s"`
	CommandTimeout       time.Duration `envconfig:"COMMAND_TIMEOUT_DEFAULT" default:"10s"`
	CommandTimeoutMin    time.Duration `envconfig:"COMMAND_TIMEOUT_MIN" default:"1s"`
	CommandTimeoutMax    time.Duration `envconfig:"COMMAND_TIMEOUT_MAX" default:"60s"`
	PendingMaxAge        time.Duration `envconfig:"PENDING_MAX_AGE" default:"60s"`
	PendingSweepInterval time.Duration `envconfig:"PENDING_SWEEP_INTERVAL" default:"60s"`
	ResultRetention      time.Duration `envconfig:"RESULT_RETENTION" default:"5m"`
	ResultSweepInterval  time.Duration `envconfig:"RESULT_SWEEP_INTERVAL" default:"1m"`
	MaxMessageBytes      int           `envconfig:"MAX_MESSAGE_BYTES" default:"1048576"`
	NavigateAttempts     int           `envconfig:"NAVIGATE_ATTEMPTS" default:"3"`
	NavigateRetryDelay   time.Duration `envconfig:"NAVIGATE_RETRY_DELAY" default:"1s"`
	ElementPollInterval  time.Duration `envconfig:"ELEMENT_POLL_INTERVAL" default:"500ms"`
	ElementWaitMax       time.Duration `envconfig:"ELEMENT_WAIT_MAX" default:"10s"`
	HistorySize          int           `envconfig:"HISTORY_SIZE" default:"1000"`
}

// CatalogConfig holds command catalog sources.
type CatalogConfig struct {
	// Files is a doublestar glob of YAML/TOML command files. Empty loads
	// built-ins only.
	Files string `envconfig:"CATALOG_FILES"`
}

// NetLogConfig holds network request log settings.
type NetLogConfig struct {
	Dir         string `envconfig:"NETLOG_DIR" default:"network_logs"`
	Compression string `envconfig:"NETLOG_COMPRESSION" default:"none"`
}

// BreakerConfig holds dispatch circuit breaker settings.
type BreakerConfig struct {
	Enabled          bool          `envconfig:"BREAKER_ENABLED" default:"false"`
	TimeoutThreshold uint32        `envconfig:"BREAKER_TIMEOUT_THRESHOLD" default:"5"`
	Cooldown         time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "1234",
			Host:            "0.0.0.0",
			MaxConnections:  256,
			ShutdownTimeout: 10 * time.Second,
		},
		Relay: RelayConfig{
			HandshakeTimeout:     30 * time.Second,
			CommandTimeout:       10 * time.Second,
			CommandTimeoutMin:    time.Second,
			CommandTimeoutMax:    60 * time.Second,
			PendingMaxAge:        60 * time.Second,
			PendingSweepInterval: 60 * time.Second,
			ResultRetention:      5 * time.Minute,
			ResultSweepInterval:  time.Minute,
			MaxMessageBytes:      1 << 20,
			NavigateAttempts:     3,
			NavigateRetryDelay:   time.Second,
			ElementPollInterval:  500 * time.Millisecond,
			ElementWaitMax:       10 * time.Second,
			HistorySize:          1000,
		},
		NetLog: NetLogConfig{
			Dir:         "network_logs",
			Compression: "none",
		},
		Breaker: BreakerConfig{
			Enabled:          false,
			TimeoutThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects configurations the relay cannot run with.
func (c *Config) Validate() error {
	r := c.Relay
	switch {
	case r.CommandTimeoutMin <= 0:
		return fmt.Errorf("COMMAND_TIMEOUT_MIN must be positive")
	case r.CommandTimeoutMax < r.CommandTimeoutMin:
		return fmt.Errorf("COMMAND_TIMEOUT_MAX %s is below COMMAND_TIMEOUT_MIN %s", r.CommandTimeoutMax, r.CommandTimeoutMin)
	case r.CommandTimeout < r.CommandTimeoutMin || r.CommandTimeout > r.CommandTimeoutMax:
		return fmt.Errorf("COMMAND_TIMEOUT_DEFAULT %s is outside [%s, %s]", r.CommandTimeout, r.CommandTimeoutMin, r.CommandTimeoutMax)
	case r.MaxMessageBytes <= 0:
		return fmt.Errorf("MAX_MESSAGE_BYTES must be positive")
	case r.NavigateAttempts < 1:
		return fmt.Errorf("NAVIGATE_ATTEMPTS must be at least 1")
	case r.HistorySize < 1:
		return fmt.Errorf("HISTORY_SIZE must be at least 1")
	}
	if _, err := netlog.ParseCompression(c.NetLog.Compression); err != nil {
		return fmt.Errorf("NETLOG_COMPRESSION: %w", err)
	}
	return nil
}

// Session returns the peer session settings.
func (c *Config) Session() peer.Config {
	return peer.Config{
		HandshakeTimeout: c.Relay.HandshakeTimeout,
		PendingMaxAge:    c.Relay.PendingMaxAge,
		SweepInterval:    c.Relay.PendingSweepInterval,
		MaxMessageBytes:  c.Relay.MaxMessageBytes,
	}
}

// Executor returns the execution facade settings.
func (c *Config) Executor() relay.Config {
	return relay.Config{
		DefaultTimeout:      c.Relay.CommandTimeout,
		MinTimeout:          c.Relay.CommandTimeoutMin,
		MaxTimeout:          c.Relay.CommandTimeoutMax,
		NavigateAttempts:    c.Relay.NavigateAttempts,
		NavigateRetryDelay:  c.Relay.NavigateRetryDelay,
		ElementPollInterval: c.Relay.ElementPollInterval,
		ElementWaitMax:      c.Relay.ElementWaitMax,
		BreakerEnabled:      c.Breaker.Enabled,
		BreakerThreshold:    c.Breaker.TimeoutThreshold,
		BreakerCooldown:     c.Breaker.Cooldown,
	}
}
