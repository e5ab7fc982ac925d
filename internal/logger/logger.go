package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. It starts disabled so library callers that
// never call Initialize get no output.
var Logger = zerolog.Nop()

// Initialize configures the global logger. Output goes to w (stderr when nil);
// stdout is reserved for command results.
func Initialize(level string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	}
	Logger = zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
}

// GetForComponent returns a child logger tagged with a component field.
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}
