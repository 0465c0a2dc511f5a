// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output, ISO8601 timestamps
//   - Development: Colored console output at debug level (LOG_DEV=true)
//
// Components never share a global logger. The server builds one Logger and
// hands each component a named child:
//
//	logger, err := logging.New(logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development))
//	session := peer.NewSession(..., logger.Component("session"))
//	logger.Info("Relay starting", zap.String("addr", cfg.Server.Addr()))
package logging
