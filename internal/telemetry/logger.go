// Package telemetry builds the module's zap loggers the way the rest of the
// house stack does: color console output when attached to a terminal, JSON
// otherwise.
package telemetry

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config controls the logging subsystem.
type Config struct {
	// Level is the minimum logging level.
	Level zapcore.Level `yaml:"level"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{Level: zapcore.InfoLevel}
}

// NewLogger builds a SugaredLogger and its atomic level (so the level can be
// adjusted at runtime, e.g. from an admin endpoint) from cfg. An interactive
// stderr gets color console output for a human watching the agent run; a
// piped or redirected stderr (the common case for a long-running `serve`
// under a supervisor) gets structured JSON instead, matching `consume`'s own
// interactive-vs-piped split in cmd/diskqueue-agent.
func NewLogger(cfg Config) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	var zapCfg zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.Level)
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build(zap.Fields(zap.String("component", "diskqueue")))
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("telemetry: build logger: %w", err)
	}

	return logger.Sugar(), zapCfg.Level, nil
}
