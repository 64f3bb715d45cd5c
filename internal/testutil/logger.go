package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output.
// This is the standard library pattern for test loggers.
//
// Note: log.Logger is a type alias for *slog.Logger, so this function
// and log.NewNop() return the same type. Prefer log.NewNop() when working
// with the internal/log package; DiscardLogger exists for tests that
// should not import internal/log.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
