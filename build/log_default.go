//go:build !stdlog && !nolog
// +build !stdlog,!nolog

package build

import (
	"io"
	"os"
)

// LoggingType is a log type that writes to both stdout and the log rotator, if
// present.
const LoggingType = LogTypeDefault

// Stdout is the console side of the log output. Tests may replace it.
var Stdout io.Writer = os.Stdout

// Write writes the byte slice to the console and the log rotator, if present.
// Console errors are ignored; a failing rotator pipe is reported so that the
// logger can surface lost log file output.
func (w *LogWriter) Write(b []byte) (int, error) {
	_, _ = Stdout.Write(b)
	if w.RotatorPipe == nil {
		return len(b), nil
	}
	if _, err := w.RotatorPipe.Write(b); err != nil {
		return 0, err
	}
	return len(b), nil
}
