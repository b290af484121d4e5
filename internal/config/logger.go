package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger from the log settings
func (c *Config) NewLogger() *slog.Logger {
	return newLogger(os.Stdout, c.LogFormat, c.LogLevel)
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
