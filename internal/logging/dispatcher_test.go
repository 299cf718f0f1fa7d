package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cargoloop/simcore/internal/dispatcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("test message", "key1", "value1", "key2", 42)

	entry := decode(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"]) // JSON numbers are float64
}

func TestDispatcherLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("info message", "status", "ok")

	entry := decode(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ok", entry["status"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("event failed", "command", dispatcher.CmdZoneTransfer, "error", errors.New("boom"))

	entry := decode(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, dispatcher.CmdZoneTransfer, entry["command"])
	assert.Equal(t, "boom", entry["error"])
}

func TestDispatcherLogger_OddAndNonStringKeys(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("odd", 7, "ignored", "dangling")

	entry := decode(t, &buf)
	assert.Equal(t, "odd", entry["message"])
	assert.NotContains(t, entry, "dangling")
	assert.Len(t, entry, 2)
}

func TestDispatcherLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_ImplementsInterface(t *testing.T) {
	var _ dispatcher.Logger = NewDispatcherLogger(zerolog.Nop())
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "WARN", "storage")

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	entry := decode(t, &buf)
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "storage", entry["component"])
	assert.Contains(t, entry, "time")

	assert.Equal(t, zerolog.InfoLevel, NewZerolog(&buf, "", "x").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewZerolog(&buf, "loud", "x").GetLevel())
}
