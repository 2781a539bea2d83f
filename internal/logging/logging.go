package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

const instrumentationName = "MetadataExtractor"

// New creates a console slog.Logger with provided level and format ("text" or "json").
// When exportOTel is set, records are also sent to the global OTel log provider.
func New(level, format string, exportOTel bool) *slog.Logger {
	handler := consoleHandler(os.Stdout, level, format)
	if exportOTel {
		handler = NewMultiHandler(handler, otelslog.NewHandler(
			instrumentationName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		))
	}
	return slog.New(handler)
}

func consoleHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
