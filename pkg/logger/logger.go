package logger

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Component-scoped logging helpers on top of log/slog. Every call carries a
// "component" attribute so gateway logs can be filtered per subsystem
// (telegram, agent, provider, ...).

var (
	level   = new(slog.LevelVar)
	handler atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	handler.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// SetDebug switches the global level to debug when enabled.
func SetDebug(enabled bool) {
	if enabled {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// SetJSON switches the output format to JSON (for log collectors).
func SetJSON(enabled bool) {
	if enabled {
		handler.Store(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	} else {
		handler.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
}

func logWith(lvl slog.Level, component, msg string, fields map[string]any) {
	l := handler.Load()
	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "component", component)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	l.Log(context.Background(), lvl, msg, attrs...)
}

func DebugC(component, msg string) { logWith(slog.LevelDebug, component, msg, nil) }
func InfoC(component, msg string)  { logWith(slog.LevelInfo, component, msg, nil) }
func WarnC(component, msg string)  { logWith(slog.LevelWarn, component, msg, nil) }
func ErrorC(component, msg string) { logWith(slog.LevelError, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelDebug, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelInfo, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelWarn, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelError, component, msg, fields)
}
