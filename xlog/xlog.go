package xlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
)

var ErrXLoggerDuplicatedContextField = errors.New("[XLogger] duplicated context field")

type xLogger struct {
	logger atomic.Pointer[zap.Logger]
	level  zap.AtomicLevel
	cores  []xLogCore
	// Log field name to the context key. Read only after built.
	ctxFields tree.RBTree[string, any]
}

func (l *xLogger) zap() *zap.Logger {
	return l.logger.Load()
}

func (l *xLogger) Level() string {
	return l.level.Level().String()
}

func (l *xLogger) Sync() error {
	err := l.logger.Load().Sync()
	if errors.Is(err, os.ErrInvalid) || isStdSyncErr(err) {
		// Stdout and stderr are not able to sync on some platforms.
		return nil
	}
	return err
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Load().Debug(msg, fields...)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Load().Info(msg, fields...)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	l.logger.Load().Error(msg, joinFields(errorFields(err), fields)...)
}

func (l *xLogger) ErrorStack(err error, msg string, fields ...zap.Field) {
	l.logger.Load().Error(msg, joinFields(errorStackFields(err), fields)...)
}

func (l *xLogger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Load().Info(msg, joinFields(l.contextFields(ctx), fields)...)
}

func (l *xLogger) ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	l.logger.Load().Error(msg, joinFields(l.contextFields(ctx), errorFields(err), fields)...)
}

func (l *xLogger) ErrorStackContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	l.logger.Load().Error(msg, joinFields(l.contextFields(ctx), errorStackFields(err), fields)...)
}

func (l *xLogger) Logf(lvl zapcore.Level, format string, args ...any) {
	l.logger.Load().Log(lvl, fmt.Sprintf(format, args...))
}

func (l *xLogger) contextFields(ctx context.Context) []zap.Field {
	return extractFieldsFromContext(ctx, l.ctxFields)
}

func joinFields(groups ...[]zap.Field) []zap.Field {
	size := 0
	for _, g := range groups {
		size += len(g)
	}
	res := make([]zap.Field, 0, size)
	for _, g := range groups {
		res = append(res, g...)
	}
	return res
}

func errorFields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return []zap.Field{zap.String("error", err.Error())}
}

func errorStackFields(err error) []zap.Field {
	var es infra.ErrorStack
	if errors.As(err, &es) && es != nil {
		return []zap.Field{zap.Inline(es)}
	}
	return errorFields(err)
}

// extractFieldsFromContext writes the context values in the order of
// the log field names. Absent values are skipped.
func extractFieldsFromContext(ctx context.Context, targets tree.RBTree[string, any]) []zap.Field {
	if ctx == nil || targets == nil || targets.IsEmpty() {
		return nil
	}
	fields := make([]zap.Field, 0, targets.Len())
	for name, key := range targets.Entries() {
		if v := ctx.Value(*key); v != nil {
			fields = append(fields, zap.Any(name, v))
		}
	}
	return fields
}

type loggerCfg struct {
	level     zapcore.Level
	encoder   logEncoderType
	writers   []zapcore.WriteSyncer
	ctxFields tree.RBTree[string, any]
}

type XLoggerOption func(*loggerCfg) error

// NewXLogger logs to the stderr unless a writer is set. The level is
// INFO by default.
func NewXLogger(opts ...XLoggerOption) (XLogger, error) {
	cfg := &loggerCfg{
		level:   zapcore.InfoLevel,
		encoder: JSON,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if len(cfg.writers) == 0 {
		cfg.writers = []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	}

	xl := &xLogger{
		level:     zap.NewAtomicLevelAt(cfg.level),
		cores:     make([]xLogCore, 0, len(cfg.writers)),
		ctxFields: cfg.ctxFields,
	}
	for _, ws := range cfg.writers {
		xl.cores = append(xl.cores, newConsoleCore(xl.level, cfg.encoder, ws))
	}
	xl.logger.Store(zap.New(
		teeCores(xl.cores),
		zap.AddCallerSkip(1), // Report the caller of the xLogger methods.
		zap.AddCaller(),
	))
	return xl, nil
}

// WithXLoggerWriter appends an output.
func WithXLoggerWriter(w io.Writer) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if w == nil {
			return infra.NewErrorStack("[XLogger] nil writer")
		}
		cfg.writers = append(cfg.writers, zapcore.AddSync(w))
		return nil
	}
}

func WithXLoggerEncoder(enc logEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if enc >= _encMax {
			return infra.NewErrorStack("[XLogger] unknown encoder")
		}
		cfg.encoder = enc
		return nil
	}
}

func WithXLoggerLevel(lvl logLevel) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.level = lvl.zapLevel()
		return nil
	}
}

// WithXLoggerContextFieldExtract writes the context value of key into
// the log field name. The key follows the context.WithValue rules, it
// must be comparable and should be a caller defined type.
func WithXLoggerContextFieldExtract(key any, name string) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if key == nil || !reflect.TypeOf(key).Comparable() {
			return infra.NewErrorStack("[XLogger] context key is nil or not comparable")
		}
		if len(name) == 0 {
			return infra.NewErrorStack("[XLogger] empty context field name")
		}
		if cfg.ctxFields == nil {
			cfg.ctxFields = tree.NewRBTree[string, any]()
		}
		if err := cfg.ctxFields.Insert(name, key, true); err != nil {
			return infra.WrapErrorStackWithMessage(ErrXLoggerDuplicatedContextField, name)
		}
		return nil
	}
}

func isStdSyncErr(err error) bool {
	if err == nil {
		return false
	}
	for _, e := range multierr.Errors(err) {
		msg := e.Error()
		if !strings.Contains(msg, "/dev/stdout") &&
			!strings.Contains(msg, "/dev/stderr") &&
			!strings.Contains(msg, "inappropriate ioctl") &&
			!strings.Contains(msg, "bad file descriptor") {
			return false
		}
	}
	return true
}
