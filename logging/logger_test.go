package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(level LogLevel) (*EngineLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = &buf
	cfg.AddSource = false
	return NewLogger(cfg), &buf
}

func TestEngineLoggerContext(t *testing.T) {
	logger, buf := captureLogger(LogLevelInfo)
	logger = logger.WithComponent("engine").WithSession("s1", "gen1")
	logger.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "gen1", entry["generation_id"])
}

func TestEngineLoggerLevelFilter(t *testing.T) {
	logger, buf := captureLogger(LogLevelWarn)
	logger.Debug("quiet")
	logger.Info("quiet")
	assert.Zero(t, buf.Len())
	logger.Warn("loud")
	assert.NotZero(t, buf.Len())
}

func TestLogCompaction(t *testing.T) {
	logger, buf := captureLogger(LogLevelInfo)
	logger.LogCompaction(30, 30, time.Millisecond, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Compaction completed", entry["msg"])
	assert.EqualValues(t, 30, entry["summarized_count"])

	buf.Reset()
	logger.LogCompaction(0, 60, time.Millisecond, assert.AnError)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Compaction skipped", entry["msg"])
}

func TestNoOpLoggerSatisfiesInterface(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Error("x")
}
