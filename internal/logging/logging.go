// Package logging builds the zap logger used across gitdash and manages its log files.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/drewdunne/gitdash/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger at the configured level. With cfg.Dir set, JSON lines go
// to the current day's file under that directory, switching at midnight;
// otherwise console output goes to stderr.
// The returned close function flushes and releases the file.
func New(cfg config.LoggingConfig) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		parsed, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing log level: %w", err)
		}
		level = parsed
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Dir == "" {
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level)
		logger := zap.New(core)
		return logger, func() error { _ = logger.Sync(); return nil }, nil
	}

	f, err := NewWriter(cfg.Dir).Daily(time.Now)
	if err != nil {
		return nil, nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), f, level)
	logger := zap.New(core)
	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}
