// Package ui provides terminal UI components for progress and status display.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a sync stage.
type Stage int

const (
	// StageScanning is the file scanning stage.
	StageScanning Stage = iota
	// StageIndexing is the index building stage.
	StageIndexing
	// StageWatching indicates the watcher is live.
	StageWatching
	// StageComplete indicates the sync is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageIndexing:
		return "Indexing"
	case StageWatching:
		return "Watching"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage icon for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageIndexing:
		return "INDEX"
	case StageWatching:
		return "WATCH"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings tracks duration for each sync stage.
type StageTimings struct {
	Scan  time.Duration // File scanning and parsing
	Index time.Duration // Search index building
}

// CompletionStats contains final sync statistics.
type CompletionStats struct {
	Files     int
	Documents int
	Duration  time.Duration
	Errors    int
	Warnings  int
	Stages    StageTimings // Per-stage timing breakdown
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output  io.Writer
	Quiet   bool
	NoColor bool
	RootDir string // Document root path to display in header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithQuiet suppresses per-file progress lines.
func WithQuiet(quiet bool) ConfigOption {
	return func(c *Config) {
		c.Quiet = quiet
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithRootDir sets the document root path to display in header.
func WithRootDir(dir string) ConfigOption {
	return func(c *Config) {
		c.RootDir = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// NewRenderer creates a renderer based on config and environment.
// Color is disabled automatically for non-TTY outputs, CI environments,
// and when NO_COLOR is set.
func NewRenderer(cfg Config) Renderer {
	if !cfg.NoColor {
		if !IsTTY(cfg.Output) || DetectCI() || DetectNoColor() {
			cfg.NoColor = true
		}
	}
	return NewPlainRenderer(cfg)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	// Check if it's a file that's a terminal
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
