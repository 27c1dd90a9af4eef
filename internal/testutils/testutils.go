// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// Context returns a context cancelled after timeout or at test cleanup
func Context(t testing.TB, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// LogRecorder is a slog handler that keeps every record in memory
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogRecorder creates a recorder and a logger writing to it
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	r := &LogRecorder{}
	return r, slog.New(r)
}

// Enabled accepts every level
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle stores the record
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec.Clone())
	return nil
}

// WithAttrs ignores attributes; records are matched by message
func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler {
	return r
}

// WithGroup ignores groups
func (r *LogRecorder) WithGroup(string) slog.Handler {
	return r
}

// Messages returns the messages logged so far
func (r *LogRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]string, len(r.records))
	for i, rec := range r.records {
		msgs[i] = rec.Message
	}
	return msgs
}

// Contains reports whether any message contains substr
func (r *LogRecorder) Contains(substr string) bool {
	for _, msg := range r.Messages() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
