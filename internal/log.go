package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

const slogLevelTrace = slog.LevelDebug - 4

// ParseLogLevel converts ERROR/WARN/INFO/DEBUG/TRACE into a level
func ParseLogLevel(s string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError, true
	case "WARN", "WARNING":
		return LogLevelWarn, true
	case "INFO":
		return LogLevelInfo, true
	case "DEBUG":
		return LogLevelDebug, true
	case "TRACE":
		return LogLevelTrace, true
	}
	return LogLevelInfo, false
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelTrace:
		return slogLevelTrace
	default:
		return slog.LevelInfo
	}
}

// LoggerOptions configures a run logger
type LoggerOptions struct {
	Level   LogLevel
	Output  io.Writer // defaults to os.Stderr
	File    string    // optional plain-text copy of the log
	NoColor bool
}

// Logger provides leveled logging. A Logger is created at run start, handed
// to every component that logs, and closed at run end.
type Logger struct {
	level  LogLevel
	slog   *slog.Logger
	closer io.Closer
}

// NewLogger creates a new logger with the specified level writing to stderr
func NewLogger(level LogLevel) *Logger {
	l, _ := OpenLogger(LoggerOptions{Level: level})
	return l
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	level, _ := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	return NewLogger(level)
}

// NewNopLogger creates a logger that drops everything
func NewNopLogger() *Logger {
	return &Logger{
		level: LogLevelError,
		slog:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// OpenLogger creates a logger from options, opening the log file if one is set
func OpenLogger(opts LoggerOptions) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handler := slog.Handler(tint.NewHandler(out, &tint.Options{
		Level:      opts.Level.slogLevel(),
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	}))

	var closer io.Closer
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		closer = f
		handler = slogmulti.Fanout(
			handler,
			slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.Level.slogLevel()}),
		)
	}

	return &Logger{level: opts.Level, slog: slog.New(handler), closer: closer}, nil
}

// With returns a logger that adds key/value attributes to every line
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{level: l.level, slog: l.slog.With(args...)}
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(slogLevelTrace, format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	if l == nil {
		return LogLevelError
	}
	return l.level
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	ctx := context.Background()
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, fmt.Sprintf(format, args...))
}
