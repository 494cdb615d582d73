// Package observability provides structured logging, metrics and tracing setup.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	tlog "go.temporal.io/sdk/log"

	"github.com/finops-claw-gang/eventcheck-go/internal/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds a JSON logger on w. Every record carries the service name,
// the event source mode and the build version.
func NewLogger(w io.Writer, service string, cfg config.Config) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	return slog.New(h).With(
		"service", service,
		"mode", string(cfg.Mode),
		"version", cfg.ServiceVersion,
	)
}

// InitLogger installs a stdout JSON logger for service as the slog default.
func InitLogger(service string, cfg config.Config) *slog.Logger {
	logger := NewLogger(os.Stdout, service, cfg)
	slog.SetDefault(logger)
	return logger
}

// TemporalSlogAdapter routes Temporal SDK logs into slog. Workflow and activity
// loggers derived through With keep their keys on every record.
type TemporalSlogAdapter struct {
	logger *slog.Logger
}

func NewTemporalSlogAdapter(logger *slog.Logger) *TemporalSlogAdapter {
	return &TemporalSlogAdapter{logger: logger.With("component", "temporal")}
}

func (a *TemporalSlogAdapter) Debug(msg string, keyvals ...any) { a.logger.Debug(msg, keyvals...) }
func (a *TemporalSlogAdapter) Info(msg string, keyvals ...any)  { a.logger.Info(msg, keyvals...) }
func (a *TemporalSlogAdapter) Warn(msg string, keyvals ...any)  { a.logger.Warn(msg, keyvals...) }
func (a *TemporalSlogAdapter) Error(msg string, keyvals ...any) { a.logger.Error(msg, keyvals...) }

// With returns an adapter whose records also carry keyvals.
func (a *TemporalSlogAdapter) With(keyvals ...any) tlog.Logger {
	return &TemporalSlogAdapter{logger: a.logger.With(keyvals...)}
}

var (
	_ tlog.Logger     = (*TemporalSlogAdapter)(nil)
	_ tlog.WithLogger = (*TemporalSlogAdapter)(nil)
)
