// Package testutil provides helpers shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
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

// WriteJSONLines writes one JSON object per line to path, creating parent
// directories. This is the layout of the event log and song catalog files.
func WriteJSONLines(t testing.TB, path string, records ...map[string]any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		require.NoError(t, enc.Encode(r))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}
