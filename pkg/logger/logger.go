// Package logger provides the process-wide logger for uiharness.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	globalLogger = newLogger(os.Stderr, logrus.InfoLevel)
	logFile      *os.File
	mu           sync.Mutex
)

// Fields is an alias for structured log fields.
type Fields = logrus.Fields

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	return l
}

// Init configures the global logger. level is a logrus level name ("debug",
// "info", ...). When logPath is non-empty, output is appended to that file in
// addition to stderr.
func Init(level, logPath string) error {
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var out io.Writer = os.Stderr
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //#nosec G304 -- user-provided log path
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}

	globalLogger = newLogger(out, lvl)
	return nil
}

// SetOutput redirects the global logger, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.SetOutput(w)
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger.SetOutput(os.Stderr)
}

func current() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return current().WithFields(fields)
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// GetWriter returns a writer that logs each line at error level, e.g. for
// http.Server.ErrorLog. The caller closes it.
func GetWriter() *io.PipeWriter {
	return current().WriterLevel(logrus.ErrorLevel)
}
