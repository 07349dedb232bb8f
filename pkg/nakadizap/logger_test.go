package nakadizap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nakadi-go/nakadi/pkg/nakadi"
)

func TestLoggerLogsAtExpectedLevel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core))

	l.Log(nakadi.LogLevelWarn, "retrying connect", "attempt", 3, "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "retrying connect", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(3), fields["attempt"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLoggerNoneLevelIsDiscarded(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core))

	l.Log(nakadi.LogLevelNone, "should not appear")

	assert.Empty(t, logs.All())
}

func TestLoggerNilZapLoggerIsNop(t *testing.T) {
	l := New(nil)
	assert.NotPanics(t, func() {
		l.Log(nakadi.LogLevelError, "no-op")
	})
}

func TestLoggerOddKeyvalsFallsBackToIgnoredExtra(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core))

	l.Log(nakadi.LogLevelInfo, "odd", "key_only")

	fields := logs.All()[0].ContextMap()
	assert.Contains(t, fields, "ignored_extra")
}
