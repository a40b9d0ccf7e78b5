package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/logger"
)

func TestTextHandlerFormatsLineWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewTextHandler(&buf, &slog.HandlerOptions{})
	l := slog.New(h)

	l.Info("request completed", "status", 200, "path", "/api/node/1")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "request completed")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "path=/api/node/1")
}

func TestTextHandlerRespectsLevelFilter(t *testing.T) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)

	h := logger.NewTextHandler(nil, &slog.HandlerOptions{Level: levelVar})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestTextHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewTextHandler(&buf, &slog.HandlerOptions{})
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "api")}).WithGroup("req")

	l := slog.New(h2)
	l.Info("scoped", "id", 7)

	out := buf.String()
	require.Contains(t, out, "component=api")
	assert.Contains(t, out, "req.id=7")
}
