package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"shoebox/internal/config"
)

const logLevelEnvKey = "SHOEBOX_LOG_LEVEL"

// logOutput receives diagnostics. Command output goes to stdout.
var logOutput io.Writer = os.Stderr

// logSource names where the effective level came from, in the spelling a
// user would recognise in a warning.
type logSource string

const (
	sourceFlag    logSource = "--log-level"
	sourceEnv     logSource = logLevelEnvKey
	sourceConfig  logSource = "log_level"
	sourceDefault logSource = "default"
)

// configureLoggerForCLI installs the process logger. A bad --log-level is an
// error; a bad env or config value falls back to the default and returns a
// warning. With jsonLogs the records are JSON, matching --json output.
func configureLoggerForCLI(flagLevel string, cfg *config.Config, jsonLogs bool) (string, error) {
	var configLevel string
	if cfg != nil {
		configLevel = cfg.LogLevel
	}
	raw, source := selectedLogLevel(flagLevel, os.Getenv(logLevelEnvKey), configLevel)

	var warning string
	level, err := parseLogLevel(raw)
	if err != nil {
		if source == sourceFlag {
			return "", fmt.Errorf("invalid --log-level %q", flagLevel)
		}
		level, _ = parseLogLevel(config.DefaultLogLevel)
		warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", source, raw, config.DefaultLogLevel)
	}
	slog.SetDefault(newLogger(level, jsonLogs))
	return warning, nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, logSource) {
	switch {
	case strings.TrimSpace(flagLevel) != "":
		return flagLevel, sourceFlag
	case strings.TrimSpace(envLevel) != "":
		return envLevel, sourceEnv
	case strings.TrimSpace(configLevel) != "":
		return configLevel, sourceConfig
	default:
		return "", sourceDefault
	}
}

// parseLogLevel accepts slog level names, "warning", and numeric levels.
func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		value = config.DefaultLogLevel
	case "warning":
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(level slog.Level, jsonLogs bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(logOutput, opts))
	}
	return slog.New(slog.NewTextHandler(logOutput, opts))
}
