package log

import (
	"crypto/sha256"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Production mode switches to the JSON
// encoder; the level defaults to debug.
func New(level string, production bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if production {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			fmt.Printf("bad LOG_LEVEL=%s, fallback to debug\n", level)
		}
	}
	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func Must(level string, production bool) *zap.Logger {
	l, err := New(level, production)
	if err != nil {
		panic(err)
	}
	return l
}

// Email logs an address as its sha256 digest.
func Email(email string) zap.Field {
	return zap.String("user", fmt.Sprintf("%x", sha256.Sum256([]byte(email))))
}
