package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	t.Run("writes level and message", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger("test", LevelInfo)
		l.SetOutput(&buf)

		l.Warnf("render warning: %s", "caption truncated")

		out := buf.String()
		assert.Contains(t, out, "[WARN]")
		assert.Contains(t, out, "render warning: caption truncated")
	})

	t.Run("filters below the minimum level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger("test", LevelWarn)
		l.SetOutput(&buf)

		l.Info("quiet")
		l.Debug("quieter")

		assert.Empty(t, buf.String())
	})

	t.Run("fields appear in the output", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger("test", LevelInfo)
		l.SetOutput(&buf)

		l.WithField("photo_id", "abc123").Error("render failed")

		assert.Contains(t, buf.String(), "photo_id=abc123")
	})

	t.Run("WithField does not mutate the parent", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger("test", LevelInfo)
		l.SetOutput(&buf)

		l.WithField("day", "2024-03-09")
		l.Info("plain")

		assert.NotContains(t, buf.String(), "day=")
	})

	t.Run("context without a span adds no trace fields", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger("test", LevelInfo)
		l.SetOutput(&buf)

		l.WithContext(context.Background()).Info("no trace")

		out := buf.String()
		assert.Contains(t, out, "no trace")
		assert.NotContains(t, out, "trace_id=")
	})
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
}
