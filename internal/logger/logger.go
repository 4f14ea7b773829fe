package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a new Logger instance writing to stdout plus any extra sinks
// (typically the append-only log file). Console format only applies to stdout;
// files always receive JSON lines.
func New(level string, format string, files ...io.Writer) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var stdout io.Writer = os.Stdout
	if format == "text" || format == "console" {
		// Human-readable output for terminals
		stdout = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	var out io.Writer = stdout
	if len(files) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{stdout}, files...)...)
	}

	return &Logger{Logger: zerolog.New(out).With().Timestamp().Logger()}
}

// SetGlobal makes l the logger behind github.com/rs/zerolog/log.
func (l *Logger) SetGlobal() {
	log.Logger = l.Logger
}

// WithRunID returns a new logger tagged with the identifier of one run.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.With().Str(config.LogKeyRunID, runID).Logger(),
	}
}

// OpenFile opens path for appending, creating it with owner-only permissions.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
}
