package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturingLogger() (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	return New(slog.New(handler)), &buf
}

func TestInfoCtxIncludesCorrelationID(t *testing.T) {
	logger, buf := newCapturingLogger()
	ctx := WithCorrelationID(context.Background(), "corr-123")

	logger.InfoCtx(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-123", entry["correlation_id"])
}

func TestCorrelationIDEmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
}

func TestNewDefaultsToSlogDefault(t *testing.T) {
	logger := New(nil)
	assert.NotNil(t, logger)
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := Noop()
	ctx := context.Background()
	logger.DebugCtx(ctx, "debug")
	logger.InfoCtx(ctx, "info")
	logger.WarnCtx(ctx, "warn")
	logger.ErrorCtx(ctx, "error")
}
