package logging

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: human-readable console output by default,
// JSON lines when json is set. verbose lowers the level to debug.
func New(verbose, json bool) (*zap.Logger, error) {
	var cfg zap.Config
	if json {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "logging: build logger")
	}
	return log, nil
}
