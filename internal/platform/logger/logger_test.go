package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewWithWriterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")
	log.Debug("hidden")
	log.Info("shown", "request_id", "r-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "r-1", line["request_id"])
}

func TestConfigureGnark(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, ConfigureGnark(&buf, "disabled"))
	assert.NoError(t, ConfigureGnark(&buf, "warn"))
	assert.Error(t, ConfigureGnark(&buf, "loud"))
	assert.NoError(t, ConfigureGnark(&buf, "disabled"))
}

func TestConfigureGnarkUnknownLevelSilencesBackend(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ConfigureGnark(&buf, "debug"))
	before := gnarklogger.Logger()
	before.Info().Msg("before")
	require.NotZero(t, buf.Len())

	buf.Reset()
	require.Error(t, ConfigureGnark(&buf, "loud"))
	l := gnarklogger.Logger()
	l.Warn().Msg("after")
	assert.Zero(t, buf.Len())
	t.Cleanup(gnarklogger.Disable)
}
