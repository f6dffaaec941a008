// Package logging provides structured logging for the cloud bridge.
//
// It wraps Go's standard log/slog package so every component logs with
// the same handler, level and default fields (service, version).
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("cloud").Info("session established", "expires_in", ttl)
//
// Never log the cloud secret, access tokens or refresh tokens.
package logging
