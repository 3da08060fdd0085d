package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zap.InfoLevel)

	once sync.Once
	base *zap.SugaredLogger
)

// InitLogger returns the process-wide sugared logger. Every package shares
// the same core so SetLevel applies everywhere.
func InitLogger() *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = level
		logger, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		base = logger.Sugar()
	})
	return base
}

// SetLevel changes the level of the shared logger. Unknown levels are ignored
// and reported as an error.
func SetLevel(lvl string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// Level reports the current level.
func Level() zapcore.Level {
	return level.Level()
}

func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
