package mlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the production Logger backed by go.uber.org/zap, grounded on
// the teacher's common/mzap.ZapWithTraceLogger wrapper.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a ZapLogger at the given level, JSON-encoded in
// production shape (matches the teacher's structured-logging convention).
func NewZapLogger(level Level) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{sugar: logger.Sugar()}, nil
}

func toZapLevel(l Level) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Info(args ...any)                  { l.sugar.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Error(args ...any)                 { l.sugar.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.sugar.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.sugar.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }

//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(fields...)}
}

func (l *ZapLogger) Sync() error { return l.sugar.Sync() }
