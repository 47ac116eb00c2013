package logging

import (
	"log/slog"
)

// SetupMCPMode configures serving-safe logging at debug level. Stdout
// and stderr both belong to the JSON-RPC client while serving, so logs
// go to the file only; a single stray byte on either stream corrupts
// the protocol handshake.
func SetupMCPMode() (func(), error) {
	cleanup, err := SetupMCPModeWithLevel("debug")
	if err != nil {
		return nil, err
	}

	slog.Info("MCP mode logging initialized",
		slog.String("log_file", DefaultLogPath()),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}

// SetupMCPModeWithLevel is SetupMCPMode at a caller-chosen level, and
// installs the file logger as the process default.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
