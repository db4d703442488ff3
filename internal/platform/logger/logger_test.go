package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json output at info drops debug", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "json", "info")
		log.Debug("hidden")
		log.Info("shown", "cycle_number", 2)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.EqualValues(t, 2, entry["cycle_number"])
	})

	t.Run("text output", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "TEXT", "debug").Debug("visible")
		assert.Contains(t, buf.String(), "msg=visible")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
