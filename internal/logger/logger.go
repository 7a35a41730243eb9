package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/agentbench/finledger/internal/config"
)

// NewLogger creates and configures a new slog.Logger
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level == slog.LevelDebug,
	}

	var out io.Writer = os.Stdout
	if !cfg.Logging.Enabled {
		out = io.Discard
	}

	handler := slog.NewJSONHandler(out, opts)
	logger := slog.New(handler)

	logger.Info("logger initialized", "level", level)

	return logger
}
