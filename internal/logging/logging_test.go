package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := New(Options{Level: "info", Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("hello", "k", 1)
	logger.Warn("careful")
	logger.Error("boom")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "hello")
	assert.Contains(t, stdout.String(), "careful")
	assert.NotContains(t, stdout.String(), "boom")
	assert.Contains(t, stderr.String(), "boom")
}

func TestJSONFormatWithAttrs(t *testing.T) {
	var stdout bytes.Buffer
	logger, cleanup, err := New(Options{Level: "debug", Format: "json", Stdout: &stdout, Stderr: &bytes.Buffer{}})
	require.NoError(t, err)
	defer cleanup()

	logger.With("request_id", "abc").WithGroup("req").Debug("served", "status", 200)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rec))
	assert.Equal(t, "served", rec["msg"])
	assert.Equal(t, "abc", rec["request_id"])
	assert.Equal(t, float64(200), rec["req"].(map[string]any)["status"])
}

func TestLogFileReceivesAllLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hisa.log")
	logger, cleanup, err := New(Options{File: path, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	require.NoError(t, err)

	logger.Info("one")
	logger.Error("two")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "one")
	assert.Contains(t, string(data), "two")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
