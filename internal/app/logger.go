package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger interface for app layer
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// LogLevel is the minimum severity a logger emits
type LogLevel = slog.Level

const (
	LogLevelDebug = slog.LevelDebug
	LogLevelInfo  = slog.LevelInfo
	LogLevelWarn  = slog.LevelWarn
	LogLevelError = slog.LevelError
)

// LogLevelFromString parses a level name, defaulting to warn
func LogLevelFromString(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "error":
		return LogLevelError
	default:
		return LogLevelWarn
	}
}

// slogLogger adapts printf-style calls onto a slog text handler
type slogLogger struct {
	l *slog.Logger
}

// NewLogger creates a leveled logger writing key=value lines to output
func NewLogger(minLevel LogLevel, output io.Writer) Logger {
	h := slog.NewTextHandler(output, &slog.HandlerOptions{Level: minLevel})
	return &slogLogger{l: slog.New(h)}
}

// With returns a logger that adds attrs to every line
func With(logger Logger, args ...any) Logger {
	if sl, ok := logger.(*slogLogger); ok {
		return &slogLogger{l: sl.l.With(args...)}
	}
	return logger
}

func (s *slogLogger) Debug(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Info(format string, args ...interface{}) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Warn(format string, args ...interface{}) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Error(format string, args ...interface{}) {
	s.l.Error(fmt.Sprintf(format, args...))
}

// globalLogger is the logger instance used when nothing is injected
var globalLogger = NewLogger(LogLevelWarn, os.Stderr)

// SetLogger sets the global logger for app layer
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the current logger
func GetLogger() Logger {
	return globalLogger
}

// Discard is a logger that drops everything; handy in tests
var Discard Logger = NewLogger(LogLevelError+4, io.Discard)
