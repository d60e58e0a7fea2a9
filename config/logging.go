package config

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: JSON to stderr, plus a file sink
// when debugging or when log.file is set.
func NewLogger(cfg LogConfig, dataDir string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		level = parsed
	}
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	file := cfg.File
	if file == "" && cfg.Debug {
		file = "debug.log"
	}
	if file != "" {
		file = ExpandPath(file)
		if !filepath.IsAbs(file) {
			file = filepath.Join(dataDir, file)
		}
		if err := EnsureDir(filepath.Dir(file)); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, file)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if file != "" {
		logger.Debug("debug logging started", zap.String("path", file))
	}
	return logger, nil
}
