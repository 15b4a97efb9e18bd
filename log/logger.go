// Package log is a minimal wrapper around an io.Writer, plumbed through the
// workspace layer so command wiring can redirect it. The core packages
// (ref, proc, strategy, lockfile, merge) never log directly — they return
// values and errors; only workspace accepts a *Logger to report on what it
// did while running a mutating operation.
package log

import (
	"fmt"
	"io"
)

// Logger is a minimal wrapper around an io.Writer.
type Logger struct {
	io.Writer
}

// New returns a new logger which writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string.
func (l *Logger) Logf(f string, args ...interface{}) {
	fmt.Fprintf(l, f, args...)
}

// LogNSfln logs a formatted line, prefixed with `nixspace: `.
func (l *Logger) LogNSfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "nixspace: "+format+"\n", args...)
}
