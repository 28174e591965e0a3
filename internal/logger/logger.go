// Package logger provides process-wide logging for scenesync.
// Debug, Info and Warn print only in verbose mode (--verbose) and trace the
// replication pipeline. Error always prints.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the label printed in front of each line.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "LOG"
	}
}

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput redirects log lines. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Enabled reports whether lines at l are printed.
func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= LevelError || verbose
}

// Logf prints one line at level l. Lines from concurrent goroutines do not
// interleave.
func Logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < LevelError && !verbose {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", l, fmt.Sprintf(format, args...))
}

// Debug logs pass summaries and other tracing detail.
func Debug(format string, args ...any) { Logf(LevelDebug, format, args...) }

// Info logs notable events such as published edits and fetch failures.
func Info(format string, args ...any) { Logf(LevelInfo, format, args...) }

// Warn logs recoverable problems.
func Warn(format string, args ...any) { Logf(LevelWarn, format, args...) }

// Error logs failures regardless of verbose mode.
func Error(format string, args ...any) { Logf(LevelError, format, args...) }
