// Package logging provides structured logging for the Scanlink gateway.
//
// It wraps Go's standard log/slog package so every component logs with the
// same shape:
//
//   - JSON output for unattended installs (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
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
//	logger := logging.New(cfg.Logging, "1.4.0")
//	logger.Info("device paired", "device_id", id)
//
// Device identifiers are logged; scan payloads relayed to the host are not.
package logging
