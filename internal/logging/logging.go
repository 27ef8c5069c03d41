// Package logging configures the process-wide zap logger. The TUI owns
// stdout, so log output goes to a file, with errors additionally shipped
// to Sentry when a DSN is configured.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to the given file. sentryDSN may be empty,
// in which case the Sentry core degrades to a nop core.
func New(logFile, sentryDSN string) (*zap.SugaredLogger, error) {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	onlyErrors := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	infoAndUp := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.InfoLevel
	})

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoder := zapcore.NewConsoleEncoder(fileEncoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.Lock(f), infoAndUp),
		newSentryCore(sentryDSN, onlyErrors),
	)

	return zap.New(core).Sugar(), nil
}
