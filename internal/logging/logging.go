package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where and how verbosely logs are written.
type Config struct {
	// Level is the minimum level recorded (debug, info, warn, error).
	Level string
	// FilePath is the log file destination.
	FilePath string
	// MaxSizeMB caps the file size before rotation kicks in.
	MaxSizeMB int
	// MaxFiles is how many rotated files to keep around.
	MaxFiles int
	// WriteToStderr mirrors log lines to stderr as well. Must stay off
	// for MCP serving, where stderr belongs to the client.
	WriteToStderr bool
}

// DefaultConfig returns the standard file-logging setup.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig at debug level.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup opens the rotating log file and builds a JSON slog.Logger over
// it. The returned cleanup flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return slog.New(handler), cleanup, nil
}

// SetupDefault installs a debug-level file logger as the process
// default and returns its cleanup.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString exposes level parsing to the log viewer.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
