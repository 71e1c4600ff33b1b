// Package log provides a structured logging system for docket services.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a textual level (debug|info|warn|error|fatal) to a Level.
func ParseLevel(s string) (Level, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return InfoLevel, err
	}
	return fromLogrusLevel(lvl), nil
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger defines the core logging interface for docket components.
type Logger interface {
	// Leveled methods with structured context
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// printf-style methods
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	// With adds multiple fields to the logger
	With(fields ...Field) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)

	// GetLevel returns the current minimum log level
	GetLevel() Level
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*logrus.Logger)

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetLevel(toLogrusLevel(level))
	}
}

// WithFormat selects text or JSON output.
func WithFormat(format Format) LoggerOption {
	return func(l *logrus.Logger) {
		switch format {
		case FormatJSON:
			l.SetFormatter(&logrus.JSONFormatter{})
		default:
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
	}
}

// WithOutput directs log output to w.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetOutput(w)
	}
}

// NewLogger creates a new logger with the given options. Defaults: info level,
// text format, stderr.
func NewLogger(options ...LoggerOption) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	for _, option := range options {
		option(base)
	}
	return FromLogrus(base)
}

// FromLogrus wraps an existing logrus logger. Tests use it with
// logrus/hooks/test to capture entries.
func FromLogrus(l *logrus.Logger) Logger {
	return &entryLogger{entry: logrus.NewEntry(l)}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return NewLogger(WithOutput(io.Discard))
}

type entryLogger struct {
	entry *logrus.Entry
}

func (l *entryLogger) fields(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	return l.entry.WithFields(fieldsToLogrus(fields))
}

func (l *entryLogger) Debug(msg string, fields ...Field) { l.fields(fields).Debug(msg) }
func (l *entryLogger) Info(msg string, fields ...Field)  { l.fields(fields).Info(msg) }
func (l *entryLogger) Warn(msg string, fields ...Field)  { l.fields(fields).Warn(msg) }
func (l *entryLogger) Error(msg string, fields ...Field) { l.fields(fields).Error(msg) }
func (l *entryLogger) Fatal(msg string, fields ...Field) { l.fields(fields).Fatal(msg) }

func (l *entryLogger) Debugf(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }
func (l *entryLogger) Infof(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *entryLogger) Warnf(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *entryLogger) Errorf(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }

func (l *entryLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}

func (l *entryLogger) WithFields(fields Fields) Logger {
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *entryLogger) WithError(err error) Logger {
	return &entryLogger{entry: l.entry.WithError(err)}
}

func (l *entryLogger) With(fields ...Field) Logger {
	return &entryLogger{entry: l.fields(fields)}
}

func (l *entryLogger) WithComponent(component string) Logger {
	return &entryLogger{entry: l.entry.WithField(ComponentKey, component)}
}

func (l *entryLogger) SetLevel(level Level) { l.entry.Logger.SetLevel(toLogrusLevel(level)) }

func (l *entryLogger) GetLevel() Level { return fromLogrusLevel(l.entry.Logger.GetLevel()) }

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func fromLogrusLevel(level logrus.Level) Level {
	switch {
	case level >= logrus.DebugLevel:
		return DebugLevel
	case level == logrus.InfoLevel:
		return InfoLevel
	case level == logrus.WarnLevel:
		return WarnLevel
	case level == logrus.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}
