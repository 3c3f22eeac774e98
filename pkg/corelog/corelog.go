// Package corelog configures the process-wide slog logger. Init installs
// it as the slog default, so every component that logs through
// slog.Default() shares one handler configuration. No logger is carried
// in the session context, and internal/verify builds its own go-hclog
// logger rather than using this one.
package corelog

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a CLI/config level string to slog.Level.
// Unrecognized values fall back to Warn rather than erroring, matching the
// permissive behavior expected from a CLI flag default.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Format selects the text rendering used for log records.
type Format string

const (
	// FormatSimple renders "LEVEL message key=value ...".
	FormatSimple Format = "simple"
	// FormatVerbose renders "time LEVEL message key=value ...".
	FormatVerbose Format = "verbose"
	// FormatJSON renders structured JSON records, for ingestion by the
	// trace store's sibling log aggregation (not itself part of the trace).
	FormatJSON Format = "json"
)

// Init builds a *slog.Logger for the given level/format/output and installs
// it as the process default. Every package that calls slog.Default()
// observes the same configuration.
func Init(level slog.Level, output *os.File, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
				return slog.String(slog.LevelKey, "WARN")
			}
			return a
		},
	}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	case FormatVerbose:
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = &simpleHandler{next: slog.NewTextHandler(output, opts), out: output}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// simpleHandler renders "LEVEL message key=value ..." without a timestamp,
// useful for interactive CLI runs where the trace store already records
// wall-clock time per event.
type simpleHandler struct {
	next slog.Handler
	out  *os.File
}

func (h *simpleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *simpleHandler) Handle(ctx context.Context, record slog.Record) error {
	var b strings.Builder
	level := record.Level.String()
	if level == "WARNING" {
		level = "WARN"
	}
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
		return true
	})
	b.WriteString("\n")
	_, err := h.out.WriteString(b.String())
	return err
}

func (h *simpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &simpleHandler{next: h.next.WithAttrs(attrs), out: h.out}
}

func (h *simpleHandler) WithGroup(name string) slog.Handler {
	return &simpleHandler{next: h.next.WithGroup(name), out: h.out}
}
