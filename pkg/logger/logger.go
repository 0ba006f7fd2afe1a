package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls how the process logger is built
type LoggerConfig struct {
	Debug bool
}

// NewLogger creates a zap logger. Debug mode uses a human readable console
// encoder at debug level; otherwise logs are JSON at info level.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg != nil && cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return zapConfig.Build()
}
