package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/crime-map-service/internal/config"
)

func TestNewLogger_LevelFromConfig(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	ctx := context.Background()

	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = NewLogger(&config.Config{LogLevel: "warning", LogFormat: "text"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
}

func TestNewLogger_InstallsDefault(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	NewLogger(&config.Config{LogLevel: "error", LogFormat: "json"})

	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelError))
}

func TestNewCLILogger(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	logger := NewCLILogger("bogus")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
