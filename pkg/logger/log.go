package logger

import (
	"fmt"

	"go.uber.org/zap"

	"fieldservice/pkg/config"
)

func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", cfg.Level, err)
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	dualConfig := zap.Config{
		Encoding:         "console",
		Level:            level,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}

	return dualConfig.Build()
}
