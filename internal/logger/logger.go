package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/sailor/internal/fault"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the process logger. Output goes to stderr, using the console
// writer in debug mode, and is duplicated as JSON into logFile when set. The
// returned closer releases the log file.
func Setup(debug bool, logFile string) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var stderr io.Writer = os.Stderr
	if debug {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}
	}

	if logFile == "" {
		return newLogger(stderr, level), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return zerolog.Nop(), nil, fault.Wrap(fault.FileIO, err, "failed to create log directory")
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fault.Wrap(fault.FileIO, err, "failed to open log file")
	}

	return newLogger(zerolog.MultiLevelWriter(stderr, f), level), f, nil
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}
