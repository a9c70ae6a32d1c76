// Package logging provides structured logging for the RF433 bridge.
//
// This package wraps Go's standard log/slog package so every component
// logs through the same *slog.Logger. The console format swaps the slog
// handler for a zap console core.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "auto"     # json, text, console, auto
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("receiver started", "pin", "GPIO17")
//	logger.Error("failed to connect", "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
