package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	ctx := WithRequestID(context.Background(), "req-123")
	FromContext(ctx).Info("fetching")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "fetching", entry.Message)
	assert.Equal(t, "req-123", entry.ContextMap()["request_id"])
}

func TestFromContext_WithoutRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	FromContext(context.Background()).Warn("plain")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	t.Cleanup(func() { Set(nil) })

	err := Init(&Config{Level: "debug", Format: "json", Output: "file", FilePath: path})

	require.NoError(t, err)
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestSet_NilInstallsNop(t *testing.T) {
	Set(nil)

	assert.NotNil(t, Log)
	assert.NotNil(t, Sugar)
	assert.False(t, Log.Core().Enabled(zapcore.ErrorLevel))
}
