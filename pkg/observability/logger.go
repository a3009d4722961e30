// Package observability provides structured logging, metrics and health
// checks for cadence.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat specifies the output format for logs.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogConfig configures the logger.
type LogConfig struct {
	Level     string
	Format    LogFormat
	Output    io.Writer
	AddSource bool
	Service   string
	Version   string
}

// DefaultLogConfig logs text at info level to stderr, keeping stdout free
// for command output.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:   "info",
		Format:  LogFormatText,
		Output:  os.Stderr,
		Service: "cadence",
		Version: "dev",
	}
}

// NewLogger creates a structured logger. Records logged with a context carry
// its correlation and user ids.
func NewLogger(cfg LogConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == LogFormatJSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	var attrs []slog.Attr
	if cfg.Service != "" {
		attrs = append(attrs, slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return slog.New(&contextHandler{Handler: handler.WithAttrs(attrs)})
}

// LoggerFromEnv builds a logger from CADENCE_LOG_LEVEL, CADENCE_LOG_FORMAT
// and CADENCE_VERSION. CADENCE_ENV=production switches to JSON on stdout.
func LoggerFromEnv() *slog.Logger {
	cfg := DefaultLogConfig()
	if os.Getenv("CADENCE_ENV") == "production" {
		cfg.Format = LogFormatJSON
		cfg.Output = os.Stdout
		cfg.AddSource = true
	}
	if level := os.Getenv("CADENCE_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("CADENCE_LOG_FORMAT"); format != "" {
		cfg.Format = LogFormat(strings.ToLower(format))
	}
	if version := os.Getenv("CADENCE_VERSION"); version != "" {
		cfg.Version = version
	}
	return NewLogger(cfg)
}

// ParseLevel maps a level name to slog, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(UserIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
