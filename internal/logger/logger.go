// Package logger provides process-wide structured logging for the bikeindex CLI.
// When verbose mode is enabled via the --verbose flag, debug and info messages
// are written to stderr to help users follow token refresh, uploads and the
// login flow. Warnings and errors are always written.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	base              = build(os.Stderr, false)
)

// build creates the zerolog logger for the given writer and verbosity.
// A terminal stderr gets the human-readable console writer, anything else gets JSON lines.
func build(w io.Writer, v bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if v {
		level = zerolog.DebugLevel
	}

	out := w
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		out = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build(output, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build(output, verbose)
}

// With returns a logger tagged with the given component name.
// The returned logger snapshots the current output and level.
func With(component string) *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base.With().Str("component", component).Logger()
	return &l
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// Debug logs a debug message. Only written in verbose mode.
func Debug(format string, args ...any) {
	current().Debug().Msg(fmt.Sprintf(format, args...))
}

// Section logs a section marker. Only written in verbose mode.
func Section(name string) {
	current().Debug().Str("section", name).Msg("=== " + name + " ===")
}

// Info logs an informational message. Only written in verbose mode.
func Info(format string, args ...any) {
	current().Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	current().Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error with a message.
func Error(err error, format string, args ...any) {
	current().Error().Err(err).Msg(fmt.Sprintf(format, args...))
}
