package testutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// LogBuffer collects JSON log lines written by a test logger.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Entries decodes every line written so far.
func (b *LogBuffer) Entries(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	raw := b.buf.String()
	b.mu.Unlock()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// Find returns the first entry with the given message.
func (b *LogBuffer) Find(t *testing.T, message string) (map[string]any, bool) {
	t.Helper()
	for _, e := range b.Entries(t) {
		if e["message"] == message {
			return e, true
		}
	}
	return nil, false
}

// NewLogger returns a debug-level JSON logger writing into a LogBuffer.
func NewLogger(t *testing.T) (logger.Logger, *LogBuffer) {
	t.Helper()
	buf := &LogBuffer{}
	log, err := logger.NewZapLogger(logger.Config{Level: logger.DebugLevel, Format: logger.JSONFormat, Output: buf})
	if err != nil {
		t.Fatalf("NewZapLogger: %v", err)
	}
	return log, buf
}
