package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds a logger from the server settings: JSON or text
// handler at the configured level. Unknown levels map to info.
func (s ServerSettings) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(s.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(s.LogFormat, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
