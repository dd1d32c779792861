package testutil

import (
	"bytes"
	"sync"
	"testing"

	"github.com/systmms/envvault/internal/logging"
)

// LogBuffer is a goroutine-safe buffer for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards captured output.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewTestLogger returns a debug-enabled, colorless logger and the buffer it writes to.
//
// Example usage:
//
//	logger, logs := NewTestLogger(t)
//	src, _ := source.OpenEnvironment("UAT", ".env.uat", dir, logger)
//	src.GetOrDefault("TIMEOUT", "10")
//	assert.Contains(t, logs.String(), "using default")
func NewTestLogger(t *testing.T) (*logging.Logger, *LogBuffer) {
	t.Helper()

	buf := &LogBuffer{}
	return logging.NewWithWriter(buf, true, true), buf
}
