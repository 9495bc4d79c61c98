package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"tradier-streamer/src/models"

	"github.com/sirupsen/logrus"
)

// -----------------------------------------------------------------------------

// Logger provides leveled, printf-style logging for one named component
type Logger struct {
	name  string
	entry *logrus.Entry
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. The level is taken from config when
// it is an *models.MConfig, otherwise INFO.
func NewLogger(config interface{}, name string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg, ok := config.(*models.MConfig); ok && cfg != nil {
		base.SetLevel(ParseLevel(cfg.LogLevel))
	}

	return &Logger{
		name:  name,
		entry: logrus.NewEntry(base).WithField("component", name),
	}
}

// -----------------------------------------------------------------------------

// ParseLevel maps the configured level names to logrus levels. Unknown names map to INFO.
func ParseLevel(level string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARNING", "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	case "CRITICAL":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Named returns a logger for a sub component sharing the same output and level
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:  name,
		entry: l.entry.WithField("component", name),
	}
}

// -----------------------------------------------------------------------------

// SetOutput redirects the underlying writer (tests use it to silence output)
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.entry.Fatal(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	l := NewLogger(nil, "nop")
	l.SetOutput(io.Discard)
	return l
}
