// Package log provides the common logging interface used by nvstore components.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	// LevelDebug level for detailed troubleshooting information
	LevelDebug Level = iota
	// LevelInfo level for general operational information
	LevelInfo
	// LevelWarn level for potentially harmful situations
	LevelWarn
	// LevelError level for error events that might still allow the application to continue
	LevelError
	// LevelFatal level for severe error events that terminate the application
	LevelFatal
)

// String returns the string representation of the log level
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
	case LevelFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", l)
	}
}

// ParseLevel maps a level name to its Level value
func ParseLevel(name string) (Level, error) {
	switch name {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger is the interface components log through. Messages accept
// fmt.Sprintf-style arguments.
type Logger interface {
	// Debug logs a debug-level message
	Debug(msg string, args ...interface{})
	// Info logs an info-level message
	Info(msg string, args ...interface{})
	// Warn logs a warning-level message
	Warn(msg string, args ...interface{})
	// Error logs an error-level message
	Error(msg string, args ...interface{})
	// Fatal logs a fatal-level message and terminates the process
	Fatal(msg string, args ...interface{})
	// With returns a new logger with the given field added to the context
	With(key string, value interface{}) Logger
	// GetLevel returns the current logging level
	GetLevel() Level
	// SetLevel sets the logging level
	SetLevel(level Level)
}

// StandardLogger implements Logger with a line-oriented text format.
type StandardLogger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	fields []field
	exit   func(int)
}

type field struct {
	key   string
	value interface{}
}

// Option configures a StandardLogger
type Option func(*StandardLogger)

// WithLevel sets the logging level
func WithLevel(level Level) Option {
	return func(l *StandardLogger) {
		l.level = level
	}
}

// WithOutput sets the output writer
func WithOutput(out io.Writer) Option {
	return func(l *StandardLogger) {
		l.out = out
	}
}

// WithExitFunc overrides the function called after a fatal message.
// Tests use this to observe Fatal without terminating the process.
func WithExitFunc(exit func(int)) Option {
	return func(l *StandardLogger) {
		l.exit = exit
	}
}

// NewStandardLogger creates a StandardLogger writing to stderr at info level
// unless configured otherwise.
func NewStandardLogger(options ...Option) *StandardLogger {
	logger := &StandardLogger{
		level: LevelInfo,
		out:   os.Stderr,
		exit:  os.Exit,
	}
	for _, option := range options {
		option(logger)
	}
	return logger
}

var (
	defaultLogger     Logger
	defaultLoggerOnce sync.Once
)

// GetDefaultLogger returns the process-wide default logger, creating it on
// first use.
func GetDefaultLogger() Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewStandardLogger()
	})
	return defaultLogger
}

func (l *StandardLogger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}

	// Fields are kept sorted so repeated runs produce identical lines.
	fieldsStr := ""
	for _, f := range l.fields {
		fieldsStr += fmt.Sprintf(" %s=%v", f.key, f.value)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	l.mu.Lock()
	fmt.Fprintf(l.out, "[%s] [%s]%s %s\n", timestamp, level.String(), fieldsStr, formatted)
	l.mu.Unlock()

	if level == LevelFatal {
		l.exit(1)
	}
}

// Debug logs a debug-level message
func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info-level message
func (l *StandardLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning-level message
func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error-level message
func (l *StandardLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Fatal logs a fatal-level message and terminates the process
func (l *StandardLogger) Fatal(msg string, args ...interface{}) {
	l.log(LevelFatal, msg, args...)
}

// With returns a new logger with the given field added to the context.
// The receiver is not modified.
func (l *StandardLogger) With(key string, value interface{}) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make([]field, 0, len(l.fields)+1)
	replaced := false
	for _, f := range l.fields {
		if f.key == key {
			fields = append(fields, field{key, value})
			replaced = true
			continue
		}
		fields = append(fields, f)
	}
	if !replaced {
		fields = append(fields, field{key, value})
		sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })
	}

	return &StandardLogger{
		level:  l.level,
		out:    l.out,
		fields: fields,
		exit:   l.exit,
	}
}

// GetLevel returns the current logging level
func (l *StandardLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel sets the logging level
func (l *StandardLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}
