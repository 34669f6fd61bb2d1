package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records with attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("conversion started", slog.String("source", "a.json"))
		logger.Error("export failed", slog.Int("channels", 3))

		assert.Len(t, handler.Records(), 2)
		assert.True(t, handler.ContainsMessage("conversion started"))
		assert.True(t, handler.ContainsAttr("source", "a.json"))
		assert.False(t, handler.ContainsAttr("source", "b.json"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("probing fields")
		logger.Info("channel emitted")
		logger.Warn("name collision")
		logger.Error("load failed")

		assert.Len(t, handler.RecordsByLevel(slog.LevelWarn), 1)
		assert.Len(t, handler.RecordsByLevel(slog.LevelError), 1)
	})
}
