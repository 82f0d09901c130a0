package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	t.Run("attaches and retrieves logger", func(t *testing.T) {
		logger := zap.NewNop()
		ctx := WithContext(context.Background(), logger)

		retrieved := FromContext(ctx)
		assert.Same(t, logger, retrieved)
	})

	t.Run("returns no-op logger when not set", func(t *testing.T) {
		retrieved := FromContext(context.Background())
		require.NotNil(t, retrieved)
		// Should not panic when logging
		retrieved.Info("test")
	})
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), logger, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))

	enriched.Info("hello")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])

	// Context carries the enriched logger too
	FromContext(ctx).Info("again")
	assert.Len(t, logs.All(), 2)
}

func TestGetRequestID_NotSet(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestContextLogger(t *testing.T) {
	t.Run("L injects request_id from context", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := zap.New(core)

		ctx := WithContext(context.Background(), logger)
		ctx = context.WithValue(ctx, RequestIDKey, "req-456")

		L(ctx).Info("sweep started")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "sweep started", entries[0].Message)
		assert.Equal(t, "req-456", entries[0].ContextMap()["request_id"])
	})

	t.Run("With adds fields to child logger", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := zap.New(core)

		cl := WithLogger(context.Background(), logger).With(zap.String("component", "sweep"))
		cl.Warn("slow pass")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "sweep", entries[0].ContextMap()["component"])
	})

	t.Run("nil logger falls back to no-op", func(t *testing.T) {
		cl := &ContextLogger{ctx: context.Background()}
		// Should not panic
		cl.Info("test")
		cl.Error("test")
	})

	t.Run("Zap returns usable logger", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := zap.New(core)

		zl := WithLogger(context.Background(), logger).Zap()
		zl.Info("direct")
		assert.Len(t, logs.All(), 1)
	})
}
