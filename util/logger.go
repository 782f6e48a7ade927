package util

import (
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loggerName = "pubsubmock"

// logLevelFromEnv reads LOG_LEVEL as either a zap level number (-1 debug,
// 0 info, ...) or a level name. Anything else falls back to info.
func logLevelFromEnv() zapcore.Level {
	raw := os.Getenv("LOG_LEVEL")
	if n, err := strconv.Atoi(raw); err == nil {
		return zapcore.Level(n)
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(raw)); err == nil {
		return lvl
	}
	return zapcore.InfoLevel
}

func initLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(logLevelFromEnv())
	zapCfg.EncoderConfig.CallerKey = "ln"
	zapCfg.EncoderConfig.FunctionKey = ""
	zapCfg.EncoderConfig.LevelKey = "severity"
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(loggerName), nil
}

// NewLogger builds the emulator's zap logger, installs it as the global
// logger and returns a func that restores the previous globals and flushes.
func NewLogger() (*zap.Logger, func()) {
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("fail to init logger, error: %v", err)
	}

	undo := zap.ReplaceGlobals(logger)

	return logger, func() {
		undo()
		_ = logger.Sync()
	}
}
