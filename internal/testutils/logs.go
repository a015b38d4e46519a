package testutils

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// LogEntry is a captured log record flattened to its attributes plus
// "level" and "message".
type LogEntry map[string]any

// LogCapture is a slog.Handler that records every entry in memory.
// Handlers derived through WithAttrs share the same record list.
type LogCapture struct {
	store *captureStore
	attrs []slog.Attr
}

type captureStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogCapture returns a logger writing to a fresh capture, and the
// capture itself.
func NewLogCapture() (*slog.Logger, *LogCapture) {
	h := &LogCapture{store: &captureStore{}}
	return slog.New(h), h
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Enabled implements slog.Handler.
func (h *LogCapture) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *LogCapture) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		"level":   r.Level.String(),
		"message": r.Message,
	}
	for _, a := range h.attrs {
		entry[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.entries = append(h.store.entries, entry)
	h.store.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (h *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &LogCapture{store: h.store, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *LogCapture) WithGroup(string) slog.Handler {
	return h
}

// Entries returns a copy of the captured entries.
func (h *LogCapture) Entries() []LogEntry {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]LogEntry(nil), h.store.entries...)
}

// Find returns the first entry whose message equals msg.
func (h *LogCapture) Find(msg string) (LogEntry, bool) {
	for _, e := range h.Entries() {
		if e["message"] == msg {
			return e, true
		}
	}
	return nil, false
}
