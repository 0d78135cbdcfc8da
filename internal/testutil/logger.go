// Package testutil provides test utilities for structured logging.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// LogBuffer collects log output so tests can assert on emitted messages.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCaptureLogger returns a debug-level logger that writes to t.Log() and
// into the returned buffer.
func NewCaptureLogger(t testing.TB) (*slog.Logger, *LogBuffer) {
	t.Helper()
	lb := &LogBuffer{}
	h := slog.NewTextHandler(captureWriter{t: t, lb: lb}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(h), lb
}

// String returns everything logged so far.
func (lb *LogBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// Contains reports whether any log line contains s.
func (lb *LogBuffer) Contains(s string) bool {
	return strings.Contains(lb.String(), s)
}

// Count returns the number of log lines containing s.
func (lb *LogBuffer) Count(s string) int {
	n := 0
	for _, line := range strings.Split(lb.String(), "\n") {
		if strings.Contains(line, s) {
			n++
		}
	}
	return n
}

type captureWriter struct {
	t  testing.TB
	lb *LogBuffer
}

func (w captureWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.lb.mu.Lock()
	w.lb.buf.Write(p)
	w.lb.mu.Unlock()
	w.t.Log(string(p))
	return len(p), nil
}
