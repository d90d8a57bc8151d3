// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogEntry is one captured record. Fields holds record and handler
// attributes, with group names joined onto keys by dots.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// TestLogger captures everything logged through Logger()
type TestLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Logger returns a *slog.Logger recording into l at every level
func (l *TestLogger) Logger() *slog.Logger {
	return slog.New(&captureHandler{sink: l})
}

// GetEntriesByLevel returns the entries at level ("DEBUG", "INFO", "WARN",
// "ERROR") in logging order
func (l *TestLogger) GetEntriesByLevel(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []LogEntry
	for _, entry := range l.entries {
		if entry.Level == level {
			result = append(result, entry)
		}
	}
	return result
}

func (l *TestLogger) HasError() bool {
	return l.any(func(e LogEntry) bool { return e.Level == "ERROR" })
}

func (l *TestLogger) HasWarning() bool {
	return l.any(func(e LogEntry) bool { return e.Level == "WARN" })
}

// HasMessage reports whether any entry at level carries msg
func (l *TestLogger) HasMessage(level, msg string) bool {
	return l.any(func(e LogEntry) bool { return e.Level == level && e.Message == msg })
}

func (l *TestLogger) any(match func(LogEntry) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.entries {
		if match(entry) {
			return true
		}
	}
	return false
}

func (l *TestLogger) record(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// captureHandler is the slog.Handler behind TestLogger.Logger. Attributes
// added with WithAttrs are resolved to their qualified keys up front.
type captureHandler struct {
	sink   *TestLogger
	prefix string
	fields map[string]any
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.fields)+r.NumAttrs())
	for k, v := range h.fields {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})

	h.sink.record(LogEntry{
		Level:   r.Level.String(),
		Message: r.Message,
		Fields:  fields,
	})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]any, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		fields[k] = v
	}
	for _, a := range attrs {
		addAttr(fields, h.prefix, a)
	}
	return &captureHandler{sink: h.sink, prefix: h.prefix, fields: fields}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &captureHandler{sink: h.sink, prefix: h.prefix + name + ".", fields: h.fields}
}

// addAttr flattens a into fields, descending into groups
func addAttr(fields map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		next := prefix
		if a.Key != "" {
			next = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(fields, next, ga)
		}
		return
	}
	fields[prefix+a.Key] = v.Any()
}
