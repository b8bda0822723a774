package xlog

import (
	"fmt"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxXLogger writes the fx events of the xtreemap app graph. Building
// the graph and running the hooks is debug output, failures are errors.
type FxXLogger struct {
	logger XLogger
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.LoggerInitialized:
		l.result(e.Err, "logger initialized", zap.String("constructor", e.ConstructorName))
	case *fxevent.Supplied:
		l.result(e.Err, "supplied", zap.String("type", e.TypeName))
	case *fxevent.Provided:
		l.result(e.Err, "provided",
			zap.String("constructor", e.ConstructorName),
			zap.Strings("types", e.OutputTypeNames),
		)
	case *fxevent.Invoking:
		l.logger.Debug("invoking", zap.String("function", e.FunctionName))
	case *fxevent.Invoked:
		l.result(e.Err, "invoked", zap.String("function", e.FunctionName))
	case *fxevent.OnStartExecuting:
		l.logger.Debug("start hook", zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		l.result(e.Err, "start hook done",
			zap.String("caller", e.CallerName),
			zap.Duration("runtime", e.Runtime),
		)
	case *fxevent.OnStopExecuting:
		l.logger.Debug("stop hook", zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		l.result(e.Err, "stop hook done",
			zap.String("caller", e.CallerName),
			zap.Duration("runtime", e.Runtime),
		)
	case *fxevent.RollingBack:
		l.logger.Error(e.StartErr, "start failed, rolling back")
	case *fxevent.RolledBack:
		l.result(e.Err, "rolled back")
	case *fxevent.Started:
		l.result(e.Err, "started")
	case *fxevent.Stopped:
		l.result(e.Err, "stopped")
	default:
		l.logger.Debug("event", zap.String("type", fmt.Sprintf("%T", event)))
	}
}

func (l *FxXLogger) result(err error, msg string, fields ...zap.Field) {
	if err != nil {
		l.logger.Error(err, msg+" failed", fields...)
		return
	}
	l.logger.Debug(msg, fields...)
}

// NewFxXLogger shares the writers and the level with the logger, but
// drops the caller and the function name.
func NewFxXLogger(logger XLogger) *FxXLogger {
	if logger == nil {
		return &FxXLogger{}
	}
	return &FxXLogger{logger: newComponentXLogger(logger, "fx")}
}
