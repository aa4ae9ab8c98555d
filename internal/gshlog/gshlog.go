// Package gshlog builds the shell's diagnostic logger: a zap sugared
// logger writing to <data_dir>/log, used for spawn errors, wait-loop
// anomalies, and config parse warnings that must never land on the
// PTY stream the user is watching. Grounded on dcosson-h2's
// <config_dir>-per-file layout (internal/config/session_dir.go) and on
// other_examples' diillson-chatcli, the only pack repo with a real
// structured logger dependency.
package gshlog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DataDir returns the shell's data directory (~/.gsh), creating it if
// it doesn't exist.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".gsh")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// New builds a sugared logger writing to <data_dir>/log, appending
// across runs so a single session's history survives (h2's session
// directories are similarly append/reuse rather than truncate-on-open).
func New() (*zap.SugaredLogger, func(), error) {
	dir, err := DataDir()
	if err != nil {
		return nil, nil, err
	}
	logPath := filepath.Join(dir, "log")

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", logPath, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zapcore.InfoLevel)
	logger := zap.New(core)

	cleanup := func() {
		logger.Sync()
		f.Close()
	}
	return logger.Sugar(), cleanup, nil
}
