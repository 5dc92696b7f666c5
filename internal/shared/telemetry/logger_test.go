package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoUsesCurrentLogger(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	restore := SetLogger(zap.New(core))
	defer restore()

	Info("analysis.status", map[string]any{
		"analysis_id": "a-1",
		"status":      "completed",
		"duration_ms": 12.5,
	})

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "analysis.status", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "a-1", ctx["analysis_id"])
	assert.Equal(t, "completed", ctx["status"])
	assert.Equal(t, 12.5, ctx["duration_ms"])
}

func TestErrorFieldsAreStringified(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	restore := SetLogger(zap.New(core))
	defer restore()

	Error("worker.analysis.error", map[string]any{"error": errors.New("boom"), "": "dropped"})

	entries := observed.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.NotContains(t, ctx, "")
}

func TestWithFieldsFallsBackToNop(t *testing.T) {
	l := WithFields(nil, zap.String("k", "v"))
	require.NotNil(t, l)
	l.Info("no panic")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("  abc ", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
