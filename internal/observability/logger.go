package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/crime-map-service/internal/config"
)

const serviceName = "crime-map"

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
}

// NewCLILogger builds a text logger for the offline tools.
func NewCLILogger(level string) *slog.Logger {
	return sharedobs.NewLogger(level, "text").With("service", serviceName)
}
