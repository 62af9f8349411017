package normalizer

import (
	"io"
	"log/slog"
	"os"
)

// DebugEnv turns on debug diagnostics for the default logger when set
const DebugEnv = "CMDTREE_DEBUG"

// NewLogger returns a text logger on w without time and level attributes
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time and level for cleaner output
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// DefaultLogger logs warnings to stderr, or everything when DebugEnv is set
func DefaultLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv(DebugEnv) != "" {
		level = slog.LevelDebug
	}
	return NewLogger(os.Stderr, level)
}
