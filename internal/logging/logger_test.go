package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riso-reel/internal/logging"
)

func TestConsoleLoggerWritesComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logging.NewComponentLogger(logger, "grid").Info("resolved grid", logging.Int("rows", 4), logging.String("strategy", "exact layout"))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	line := string(content)
	assert.Contains(t, line, "grid: resolved grid")
	assert.Contains(t, line, "rows=4")
	assert.Contains(t, line, `strategy="exact layout"`)
	assert.NotContains(t, line, "\x1b[", "file output must not be colourised")
	assert.NotContains(t, line, ".go:", "info logs carry no caller")
}

func TestConsoleLoggerFiltersByLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{Level: "warn", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "shown")
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.With(logging.String(logging.FieldRunID, "abc")).Info("export complete", logging.Int("frames", 48))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record))
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "export complete", record["msg"])
	assert.Equal(t, "abc", record["run_id"])
	assert.EqualValues(t, 48, record["frames"])
	assert.Contains(t, record, "ts")
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	require.Error(t, err)
}

func TestNopLoggerIsSafe(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "ingest")
	logger.Error("dropped", logging.Error(nil))
	assert.False(t, logger.Enabled(t.Context(), 0))
}
