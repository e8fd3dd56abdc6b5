package shared

import (
	"log/slog"
)

// LogError logs an error at warn level.
func LogError(logger *slog.Logger, domain string, err error) {
	if logger == nil || err == nil {
		return
	}
	logger.Warn(domain+"_error", "err", err)
}
