// Package logging configures the process-wide slog logger for the ardt
// binaries. Library code receives *slog.Logger values through constructors
// and never installs handlers itself.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/affectsai/ardt/config"
)

// Setup builds a handler from cfg, installs it as the slog default, and
// returns it.
func Setup(cfg config.Logging) *slog.Logger {
	logger := New(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w without touching the process default.
func New(w io.Writer, cfg config.Logging) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
