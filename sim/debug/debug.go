// Package debug is the process-wide diagnostic channel for simulation lifecycle
// transitions. It is switched on once at the start of a run and read everywhere.
package debug

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	enabled atomic.Bool
	logger  = newLogger(os.Stderr)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

// SetEnabled turns lifecycle diagnostics on or off.
func SetEnabled(on bool) {
	enabled.Store(on)
	if on {
		logger.Info("Debug is Enabled")
	}
}

// Enabled reports whether lifecycle diagnostics are written.
func Enabled() bool {
	return enabled.Load()
}

// SetOutput redirects diagnostics, e.g. into a buffer in tests.
func SetOutput(out io.Writer) {
	logger.SetOutput(out)
}

// Infof writes a diagnostic line when debugging is enabled.
func Infof(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Infof(format, args...)
}
