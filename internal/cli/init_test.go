package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, log.ComponentAPI)

	assert.Equal(t, log.ComponentAPI, logger.Component())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.Same(t, logger.Logger, slog.Default())
}
