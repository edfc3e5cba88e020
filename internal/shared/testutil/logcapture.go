package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that buffers records so tests can
// assert on what a stage logged.
type LogCapture struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewTestLogger returns a logger backed by a LogCapture.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogCapture) {
	t.Helper()
	capture := &LogCapture{}
	return slog.New(capture), capture
}

// Handle implements slog.Handler.
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, LogRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler. Tests capture every level.
func (c *LogCapture) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler. Derived loggers share the buffer.
func (c *LogCapture) WithAttrs(_ []slog.Attr) slog.Handler {
	return c
}

// WithGroup implements slog.Handler. Derived loggers share the buffer.
func (c *LogCapture) WithGroup(_ string) slog.Handler {
	return c
}

// Records returns a copy of the captured records.
func (c *LogCapture) Records() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogRecord, len(c.records))
	copy(out, c.records)
	return out
}

// ContainsMessage reports whether any record's message contains sub.
func (c *LogCapture) ContainsMessage(sub string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if strings.Contains(r.Message, sub) {
			return true
		}
	}
	return false
}

// CountLevel returns the number of records at the given level.
func (c *LogCapture) CountLevel(level slog.Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Level == level {
			n++
		}
	}
	return n
}
