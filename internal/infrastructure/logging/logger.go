// Package logging builds the process logger and adapts it to the
// application's LoggingGateway port.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"pagesmith.dev/engine/internal/application/ports"
)

// New builds a slog logger writing to w. format is "text" or "json".
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// SlogGateway implements ports.LoggingGateway on a slog logger.
type SlogGateway struct {
	logger *slog.Logger
}

// NewSlogGateway wraps logger; a nil logger uses slog.Default.
func NewSlogGateway(logger *slog.Logger) *SlogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogGateway{logger: logger}
}

// Log logs a message with the specified level
func (g *SlogGateway) Log(level ports.LogLevel, message string, fields map[string]interface{}) {
	g.logger.Log(context.Background(), toSlogLevel(level), message, attrs(fields)...)
}

// LogError logs an error
func (g *SlogGateway) LogError(err error, message string, fields map[string]interface{}) {
	args := append([]any{"error", err}, attrs(fields)...)
	g.logger.Error(message, args...)
}

// Logger returns the wrapped slog logger.
func (g *SlogGateway) Logger() *slog.Logger { return g.logger }

func toSlogLevel(level ports.LogLevel) slog.Level {
	switch level {
	case ports.LogLevelDebug:
		return slog.LevelDebug
	case ports.LogLevelWarn:
		return slog.LevelWarn
	case ports.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// attrs flattens fields into key/value pairs in key order so output is stable.
func attrs(fields map[string]interface{}) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
