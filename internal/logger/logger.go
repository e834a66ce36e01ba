// Package logger holds the process-wide zap logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init builds the global logger once. ENV "production" logs JSON, "test"
// discards everything, anything else logs in the console format. level is
// an optional zap level name; unknown names keep the environment default.
func Init(env string, level ...string) {
	once.Do(func() {
		if env == "test" {
			sugar = zap.NewNop().Sugar()
			return
		}

		cfg := configFor(env)
		if len(level) > 0 && level[0] != "" {
			if lvl, err := zapcore.ParseLevel(level[0]); err == nil {
				cfg.Level = zap.NewAtomicLevelAt(lvl)
			}
		}

		base, err := cfg.Build(zap.Fields(zap.String("service", "spendwise")))
		if err != nil {
			base = zap.NewNop()
		}
		sugar = base.Sugar()
	})
}

func configFor(env string) zap.Config {
	if env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// Get returns the global logger, initialising a development logger if Init
// was never called.
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// Named returns the global logger scoped to a component, e.g. "rollover".
func Named(component string) *zap.SugaredLogger {
	return Get().Named(component)
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
