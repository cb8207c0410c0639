// ABOUTME: slog setup from the configured level and log file
// ABOUTME: Text to stdout by default, JSON when writing to a file
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "none", "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	case "warn":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("unexpected log level: %q", level)
	}
}

// ConfigureLogger installs the default slog logger.
//
// Valid log levels are "none", "error", "warn", "info", "debug". logFile may
// name a file, which is truncated and receives JSON records, or be empty to
// log text to stdout.
//
// The returned file, if any, must be closed by the caller:
//
//	logFile, err := config.ConfigureLogger(cfg.LogLevel, cfg.LogFile)
//	if logFile != nil {
//		defer logFile.Close()
//	}
func ConfigureLogger(logLevel string, logFile string) (*os.File, error) {
	level, err := parseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	if logLevel == "none" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	options := &slog.HandlerOptions{Level: level}
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, options)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, options)))
	return f, nil
}
