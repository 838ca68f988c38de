package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sozercan/cheatsheet-ai/internal/config"
)

// New builds a slog logger from cfg and installs it as the process default.
func New(cfg config.LogConfig) *slog.Logger {
	logger := slog.New(handler(os.Stderr, cfg))
	slog.SetDefault(logger)
	return logger
}

func handler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
