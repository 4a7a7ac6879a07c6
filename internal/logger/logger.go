package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds the process logger for env and installs it as zap's global.
func Init(env string) error {
	logger, err := New(env)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// New returns a JSON logger in production and a console logger otherwise.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "production", "prod":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("cfg.Build -> %w", err)
	}
	return logger, nil
}
