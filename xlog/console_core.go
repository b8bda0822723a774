package xlog

import (
	"go.uber.org/zap/zapcore"
)

var consoleEncoderCfg = zapcore.EncoderConfig{
	MessageKey:     "msg",
	LevelKey:       "lvl",
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	TimeKey:        "ts",
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	CallerKey:      "callAt",
	EncodeCaller:   zapcore.ShortCallerEncoder,
	FunctionKey:    "fn",
	NameKey:        "component",
	EncodeName:     zapcore.FullNameEncoder,
	StacktraceKey:  coreKeyIgnored,
}

// newConsoleCore writes to a stream, the command stderr in general.
func newConsoleCore(lvlEnabler zapcore.LevelEnabler, enc logEncoderType, ws zapcore.WriteSyncer) xLogCore {
	return newCommonCore(lvlEnabler, enc, ws, consoleEncoderCfg)
}
