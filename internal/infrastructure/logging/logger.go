package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

// ServiceName is the default "service" field on every record.
const ServiceName = "graylogic-rf433"

// Logger wraps slog.Logger with bridge-specific defaults.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the specified configuration.
//
// Formats:
//   - json: slog JSON handler (production, log shippers)
//   - text: slog text handler
//   - console: zap console encoder with colour levels (interactive use)
//   - auto: console when the output is a terminal, json otherwise
func New(cfg config.LoggingConfig, version string) *Logger {
	output := outputFile(cfg.Output)
	return newLogger(output, strings.ToLower(cfg.Format), parseLevel(cfg.Level), version, isTerminal(output))
}

func newLogger(output io.Writer, format string, level slog.Level, version string, tty bool) *Logger {
	if format == "auto" {
		if tty {
			format = "console"
		} else {
			format = "json"
		}
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	case "console":
		handler = consoleHandler(output, level)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// consoleHandler routes slog records through a zap console core.
func consoleHandler(w io.Writer, level slog.Level) slog.Handler {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapLevel(level)),
	)
	return zapslog.NewHandler(core)
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l <= slog.LevelInfo:
		return zapcore.InfoLevel
	case l <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func outputFile(name string) *os.File {
	if strings.ToLower(name) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	rxLogger := logger.With("component", "receiver")
//	rxLogger.Info("started") // Includes component=receiver
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a default logger for use before configuration is loaded.
// It writes JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
