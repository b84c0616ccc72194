// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects log verbosity and output.
type Options struct {
	// Quiet limits output to warnings and errors. It wins over Verbose.
	Quiet bool
	// Verbose raises the level: 1 for debug, 2 or more for trace.
	Verbose int
	// File, if set, receives the log instead of stderr and is rotated.
	File string
	// JSON writes JSON lines instead of the console format.
	JSON bool
}

// Rotation limits for File output.
const (
	maxSizeMB  = 100
	maxBackups = 5
	maxAgeDays = 28
)

// New returns a logger for opts along with a closer for its output. The
// closer is a no-op unless opts.File is set.
func New(opts Options) (zerolog.Logger, io.Closer) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		w, closer = lj, lj
	}
	return newLogger(w, opts), closer
}

func newLogger(w io.Writer, opts Options) zerolog.Logger {
	if !opts.JSON {
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    opts.File != "",
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(w).Level(Level(opts.Quiet, opts.Verbose)).With().Timestamp().Logger()
}

// Level maps the quiet flag and verbosity count onto a log level.
func Level(quiet bool, verbose int) zerolog.Level {
	switch {
	case quiet:
		return zerolog.WarnLevel
	case verbose <= 0:
		return zerolog.InfoLevel
	case verbose == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
