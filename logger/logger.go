package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is usable before Init; it discards everything until then.
var Log = zap.NewNop().Sugar()

var level = zap.NewAtomicLevelAt(zap.InfoLevel)

func Init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// SetLevel changes the minimum level at runtime, e.g. "debug" or "warn".
func SetLevel(name string) error {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// Level reports the current minimum level.
func Level() zapcore.Level {
	return level.Level()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
