package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

// createTestLogger creates a JSON logger writing to a buffer
func createTestLogger(level string) (*ZeroLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithWriter(&buf, level, false, nil), &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel zerolog.Level
	}{
		{name: "info", level: "info", expectedLevel: zerolog.InfoLevel},
		{name: "debug", level: "debug", expectedLevel: zerolog.DebugLevel},
		{name: "warn", level: "warn", expectedLevel: zerolog.WarnLevel},
		{name: "invalid_defaults_to_info", level: "loud", expectedLevel: zerolog.InfoLevel},
		{name: "empty_defaults_to_info", level: "", expectedLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := createTestLogger(tt.level)
			assert.Equal(t, tt.expectedLevel, l.zlog.GetLevel())
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := createTestLogger("warn")

	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msg(testMessage)
	entry := decodeEntry(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, testMessage, entry["message"])
}

func TestLogEventFields(t *testing.T) {
	l, buf := createTestLogger("debug")

	l.Debug().
		Str("method", "POST").
		Int("attempt", 2).
		Int64("call_count", 5).
		Bool("retryable", true).
		Dur("elapsed", 250*time.Millisecond).
		Err(errors.New("connection refused")).
		Msgf("attempt %d failed", 2)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "POST", entry["method"])
	assert.InDelta(t, 2, entry["attempt"], 0)
	assert.InDelta(t, 5, entry["call_count"], 0)
	assert.Equal(t, true, entry["retryable"])
	assert.InDelta(t, 250, entry["elapsed"], 0)
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "attempt 2 failed", entry["message"])
}

func TestSensitiveStringsAreMasked(t *testing.T) {
	l, buf := createTestLogger("info")

	l.Info().Str("api_token", "s3cr3t").Str("instrument", "BTCUSD.SPOT").Msg(testMessage)

	out := buf.String()
	assert.NotContains(t, out, "s3cr3t")
	entry := decodeEntry(t, buf)
	assert.Equal(t, DefaultMaskValue, entry["api_token"])
	assert.Equal(t, "BTCUSD.SPOT", entry["instrument"])
}

func TestInterfaceMasksAuthorizationHeader(t *testing.T) {
	l, buf := createTestLogger("info")

	headers := map[string][]string{
		"Authorization": {"Token s3cr3t"},
		"Content-Type":  {"application/json"},
	}
	l.Info().Interface("headers", headers).Msg(testMessage)

	assert.NotContains(t, buf.String(), "s3cr3t")
	entry := decodeEntry(t, buf)
	h := entry["headers"].(map[string]any)
	assert.Equal(t, []any{DefaultMaskValue}, h["Authorization"])
	assert.Equal(t, []any{"application/json"}, h["Content-Type"])
}

func TestWithFieldsMasksSensitiveData(t *testing.T) {
	l, buf := createTestLogger("info")

	child := l.WithFields(map[string]any{"token": "s3cr3t", "env": "sandbox"})
	child.Info().Msg(testMessage)

	entry := decodeEntry(t, buf)
	assert.Equal(t, DefaultMaskValue, entry["token"])
	assert.Equal(t, "sandbox", entry["env"])
}

func TestNop(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error().Str("k", "v").Msg(testMessage)
	})
}

func TestPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", true, nil)
	l.Info().Str("instrument", "ETHUSD.SPOT").Msg(testMessage)

	out := buf.String()
	assert.Contains(t, out, testMessage)
	assert.Contains(t, out, "ETHUSD.SPOT")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "pretty output is not JSON")
}
