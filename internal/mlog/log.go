// Package mlog provides the logging abstraction used across every payrail
// process. It mirrors the teacher repository's mlog/mzap split: a small
// interface decoupled from the concrete backend, plus a context carrier so
// handlers can pull a request-scoped logger without threading it through
// every call explicitly.
package mlog

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Logger is the common interface every payrail component logs through.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	// WithFields returns a child logger carrying the given key/value pairs.
	WithFields(fields ...any) Logger

	Sync() error
}

// Level represents logging severity.
type Level int8

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

// ParseLevel parses a textual log level, defaulting to info on failure.
func ParseLevel(lvl string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}

	return InfoLevel, fmt.Errorf("not a valid log level: %q", lvl)
}

// GoLogger is a dependency-free Logger backed by the standard library,
// used in tests and as a last-resort fallback when zap isn't wired up.
type GoLogger struct {
	Level  Level
	fields []any
}

func (l *GoLogger) enabled(lv Level) bool { return l.Level >= lv }

func (l *GoLogger) Info(args ...any) {
	if l.enabled(InfoLevel) {
		log.Println(append([]any{"INFO"}, append(args, l.fields...)...)...)
	}
}

func (l *GoLogger) Infof(format string, args ...any) {
	if l.enabled(InfoLevel) {
		log.Printf("INFO "+format, args...)
	}
}

func (l *GoLogger) Error(args ...any) {
	if l.enabled(ErrorLevel) {
		log.Println(append([]any{"ERROR"}, append(args, l.fields...)...)...)
	}
}

func (l *GoLogger) Errorf(format string, args ...any) {
	if l.enabled(ErrorLevel) {
		log.Printf("ERROR "+format, args...)
	}
}

func (l *GoLogger) Warn(args ...any) {
	if l.enabled(WarnLevel) {
		log.Println(append([]any{"WARN"}, append(args, l.fields...)...)...)
	}
}

func (l *GoLogger) Warnf(format string, args ...any) {
	if l.enabled(WarnLevel) {
		log.Printf("WARN "+format, args...)
	}
}

func (l *GoLogger) Debug(args ...any) {
	if l.enabled(DebugLevel) {
		log.Println(append([]any{"DEBUG"}, append(args, l.fields...)...)...)
	}
}

func (l *GoLogger) Debugf(format string, args ...any) {
	if l.enabled(DebugLevel) {
		log.Printf("DEBUG "+format, args...)
	}
}

//nolint:ireturn
func (l *GoLogger) WithFields(fields ...any) Logger {
	return &GoLogger{Level: l.Level, fields: append(append([]any{}, l.fields...), fields...)}
}

func (l *GoLogger) Sync() error { return nil }

type loggerContextKey string

const loggerKey loggerContextKey = "payrail-logger"

// FromContext extracts the ambient Logger, falling back to an Info-level
// GoLogger.
//
//nolint:ireturn
func FromContext(ctx context.Context) Logger {
	if v := ctx.Value(loggerKey); v != nil {
		if l, ok := v.(Logger); ok {
			return l
		}
	}

	return &GoLogger{Level: InfoLevel}
}

// WithContext returns a context carrying the given Logger.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
