package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// LogDirEnv overrides the directory the service log file is written to.
const LogDirEnv = "TTK_LOG_DIR"

// GetLogOutput opens <log dir>/<serviceName>.log for appending. The log dir
// defaults to ~/.twitter-to-kafka/log.
func GetLogOutput(serviceName string) (zapcore.WriteSyncer, error) {
	logDir, err := logDirectory()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, serviceName+".log")
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return zapcore.Lock(zapcore.AddSync(f)), nil
}

func logDirectory() (string, error) {
	if dir := os.Getenv(LogDirEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".twitter-to-kafka", "log"), nil
}
