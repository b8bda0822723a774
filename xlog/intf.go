package xlog

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/lib/infra"
)

type logLevel string

const (
	LogLevelDebug logLevel = "DEBUG"
	LogLevelInfo  logLevel = "INFO"
	LogLevelWarn  logLevel = "WARN"
	LogLevelError logLevel = "ERROR"
)

var zapLevels = map[logLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// ParseLogLevel falls back to DEBUG for the unknown names.
func ParseLogLevel(level string) logLevel {
	lvl := logLevel(strings.ToUpper(strings.TrimSpace(level)))
	if _, ok := zapLevels[lvl]; ok {
		return lvl
	}
	return LogLevelDebug
}

func (lvl logLevel) zapLevel() zapcore.Level {
	if zl, ok := zapLevels[lvl]; ok {
		return zl
	}
	return zapcore.DebugLevel
}

func (lvl logLevel) String() string {
	return string(lvl)
}

type logEncoderType uint8

const (
	JSON logEncoderType = iota
	PlainText
	_encMax
)

func ParseEncoder(enc string) (logEncoderType, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "json":
		return JSON, nil
	case "text", "plain", "console":
		return PlainText, nil
	default:
	}
	return _encMax, infra.NewErrorStack("[XLogger] unknown encoder " + enc)
}

func (enc logEncoderType) newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	if enc == PlainText {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

// xLogCore is able to rebuild itself by another encoder config,
// keeping the writer and the level.
type xLogCore interface {
	zapcore.Core
	rebuild(cfg zapcore.EncoderConfig) xLogCore
}

// XLogger is the zap logger used by the xtreemap commands.
//
// The context variants append the registered context values (see
// WithXLoggerContextFieldExtract) before the explicit fields.
// ErrorStack inlines the frames of an infra.ErrorStack.
type XLogger interface {
	zap() *zap.Logger

	Level() string
	Sync() error

	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Error(err error, msg string, fields ...zap.Field)
	ErrorStack(err error, msg string, fields ...zap.Field)

	InfoContext(ctx context.Context, msg string, fields ...zap.Field)
	ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field)
	ErrorStackContext(ctx context.Context, err error, msg string, fields ...zap.Field)

	Logf(lvl zapcore.Level, format string, args ...any)
}
