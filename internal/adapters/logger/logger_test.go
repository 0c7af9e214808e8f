package logger_adapter

import (
	"bytes"
	"errors"
	"listing-service/internal/core/port"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	tags     []string
	messages []map[string]interface{}
}

func (f *fakePoster) Post(tag string, message interface{}) error {
	f.tags = append(f.tags, tag)
	f.messages = append(f.messages, message.(map[string]interface{}))
	return nil
}

func (f *fakePoster) Close() error { return nil }

func TestSlogAdapter_WritesFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelDebug})

	logger.WithFields(port.Fields{"use_case": "CreateProperty"}).
		Error("Repository failed", errors.New("boom"), port.Fields{"property_id": "p1"})

	out := buf.String()
	assert.Contains(t, out, "use_case=CreateProperty")
	assert.Contains(t, out, "property_id=p1")
	assert.Contains(t, out, "error=boom")
}

func TestSlogAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	logger.Info("hidden", nil)
	logger.Debug("hidden", nil)
	assert.Empty(t, buf.String())

	logger.Warn("shown", nil)
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestFluentAdapter_MergesFieldsAndFiltersLevel(t *testing.T) {
	poster := &fakePoster{}
	logger := newFluentLoggerAdapter(poster, slog.LevelInfo)

	child := logger.WithFields(port.Fields{"component": "rest"})
	child.Debug("skipped", nil)
	child.Error("failed", errors.New("boom"), port.Fields{"status": 500})

	require.Len(t, poster.messages, 1)
	assert.Equal(t, "error", poster.tags[0])
	msg := poster.messages[0]
	assert.Equal(t, "rest", msg["component"])
	assert.Equal(t, 500, msg["status"])
	assert.Equal(t, "boom", msg["error"])
	assert.Equal(t, "failed", msg["message"])

	// родительский логгер не получил поля потомка
	assert.Empty(t, logger.fields)
}

func TestMultiLogger(t *testing.T) {
	_, err := NewMultiLoggerAdapter()
	require.Error(t, err)

	a, b := &fakePoster{}, &fakePoster{}
	multi, err := NewMultiLoggerAdapter(newFluentLoggerAdapter(a, nil), newFluentLoggerAdapter(b, nil))
	require.NoError(t, err)

	multi.WithFields(port.Fields{"k": "v"}).Info("hello", nil)
	require.Len(t, a.messages, 1)
	require.Len(t, b.messages, 1)
	assert.Equal(t, "v", b.messages[0]["k"])
}
