package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log entry with attributes flattened by key
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture records every entry written through its loggers, including
// attributes added with Logger.With.
type LogCapture struct {
	mu      sync.Mutex
	records []LogRecord
	t       testing.TB
}

// NewLogCapture returns a capture that also echoes entries to t.Log
func NewLogCapture(t testing.TB) *LogCapture {
	return &LogCapture{t: t}
}

// Logger returns a logger writing into the capture
func (c *LogCapture) Logger() *slog.Logger {
	return slog.New(&captureHandler{capture: c})
}

func (c *LogCapture) add(rec LogRecord) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	if c.t != nil {
		c.t.Logf("[%s] %s %v", rec.Level, rec.Message, rec.Attrs)
	}
}

// Records returns a copy of everything captured so far
func (c *LogCapture) Records() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Find returns the first record whose message contains msg
func (c *LogCapture) Find(msg string) (LogRecord, bool) {
	for _, r := range c.Records() {
		if strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// CountAtLevel counts records logged at exactly level
func (c *LogCapture) CountAtLevel(level slog.Level) int {
	n := 0
	for _, r := range c.Records() {
		if r.Level == level {
			n++
		}
	}
	return n
}

// Reset drops all captured records
func (c *LogCapture) Reset() {
	c.mu.Lock()
	c.records = nil
	c.mu.Unlock()
}

type captureHandler struct {
	capture *LogCapture
	attrs   []slog.Attr
	group   string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})
	h.capture.add(LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &captureHandler{capture: h.capture, group: h.group, attrs: append([]slog.Attr(nil), h.attrs...)}
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return next
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{capture: h.capture, attrs: h.attrs, group: h.key(name)}
}

func (h *captureHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
