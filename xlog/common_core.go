package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const coreKeyIgnored = ""

var _ xLogCore = (*commonCore)(nil)

// commonCore remembers how its zap core was built so that a child
// logger is able to re-encode the same output.
type commonCore struct {
	zapcore.Core
	lvlEnabler zapcore.LevelEnabler
	enc        logEncoderType
	ws         zapcore.WriteSyncer
}

func newCommonCore(
	lvlEnabler zapcore.LevelEnabler,
	enc logEncoderType,
	ws zapcore.WriteSyncer,
	cfg zapcore.EncoderConfig,
) *commonCore {
	return &commonCore{
		Core:       zapcore.NewCore(enc.newEncoder(cfg), ws, lvlEnabler),
		lvlEnabler: lvlEnabler,
		enc:        enc,
		ws:         ws,
	}
}

func (cc *commonCore) rebuild(cfg zapcore.EncoderConfig) xLogCore {
	return newCommonCore(cc.lvlEnabler, cc.enc, cc.ws, cfg)
}

func teeCores(cores []xLogCore) zapcore.Core {
	switch len(cores) {
	case 0:
		return zapcore.NewNopCore()
	case 1:
		return cores[0]
	default:
	}
	zcs := make([]zapcore.Core, 0, len(cores))
	for _, cc := range cores {
		zcs = append(zcs, cc)
	}
	return zapcore.NewTee(zcs...)
}

// Components (fx, ants) log without the caller, it is always the
// adapter itself.
var componentEncoderCfg = zapcore.EncoderConfig{
	MessageKey:     "msg",
	LevelKey:       "lvl",
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	TimeKey:        "ts",
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	CallerKey:      coreKeyIgnored,
	FunctionKey:    coreKeyIgnored,
	NameKey:        "component",
	EncodeName:     zapcore.FullNameEncoder,
	StacktraceKey:  coreKeyIgnored,
}

// newComponentXLogger names the child logger by the component. It
// shares the writers, the level and the context fields.
func newComponentXLogger(logger XLogger, component string) XLogger {
	parent, ok := logger.(*xLogger)
	if !ok {
		return logger
	}

	l := &xLogger{
		level:     parent.level,
		cores:     make([]xLogCore, 0, len(parent.cores)),
		ctxFields: parent.ctxFields,
	}
	for _, cc := range parent.cores {
		l.cores = append(l.cores, cc.rebuild(componentEncoderCfg))
	}
	core := teeCores(l.cores)
	l.logger.Store(parent.zap().
		Named(component).
		WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core {
			return core
		})),
	)
	return l
}
