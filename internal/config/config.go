package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete DocDex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Root       string           `yaml:"root" json:"root"`
	Documents  DocumentsConfig  `yaml:"documents" json:"documents"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Similarity SimilarityConfig `yaml:"similarity" json:"similarity"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// DocumentsConfig configures which files become documents.
type DocumentsConfig struct {
	// Extensions lists the file extensions treated as documents.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// ExcludeDirs lists directory names skipped during scan and watch.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"exclude_dirs"`
	// MaxFileSizeMB is the largest file read into the store, in megabytes.
	MaxFileSizeMB int `yaml:"max_file_size_mb" json:"max_file_size_mb"`
}

// WatchConfig configures filesystem observation.
type WatchConfig struct {
	// Debounce is the per-path coalescing window for filesystem events
	// (e.g. "200ms"). Editors generate bursts of writes per save; one
	// rebuild per flushed batch keeps the index consistent without thrash.
	Debounce string `yaml:"debounce" json:"debounce"`
	// PollInterval is the fallback polling cadence when native watches
	// are unavailable (e.g. "5s").
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	// BufferSize is the event channel capacity before batches are dropped.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// SearchConfig configures fuzzy weighted search.
// Field boosts and fuzziness are configurable via:
//  1. User config (~/.config/docdex/config.yaml) - personal defaults
//  2. Project config (.docdex.yaml) - per-tree tuning
//  3. Env vars (DOCDEX_FUZZINESS, ...) - highest priority
type SearchConfig struct {
	// Fuzziness is the edit-distance tolerance for query terms (0-2).
	Fuzziness int `yaml:"fuzziness" json:"fuzziness"`
	// TitleBoost weighs title matches; titles carry the strongest signal.
	TitleBoost float64 `yaml:"title_boost" json:"title_boost"`
	// BodyBoost weighs body matches.
	BodyBoost float64 `yaml:"body_boost" json:"body_boost"`
	// TagBoost weighs tag matches; tags carry the weakest signal.
	TagBoost float64 `yaml:"tag_boost" json:"tag_boost"`
	// DefaultLimit is the result count when callers pass none.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	// MaxLimit caps caller-provided limits.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
	// ExcerptLength is the maximum excerpt size in characters.
	ExcerptLength int `yaml:"excerpt_length" json:"excerpt_length"`
}

// SimilarityConfig configures related-document lookups.
type SimilarityConfig struct {
	// DefaultLimit is the result count when callers pass none.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// TelemetryConfig configures local query metrics.
type TelemetryConfig struct {
	// Enabled turns query metrics collection on.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DBPath is the SQLite file metrics flush to. Empty uses
	// ~/.docdex/telemetry.db.
	DBPath string `yaml:"db_path" json:"db_path"`
}

// defaultExcludeDirs are always skipped.
var defaultExcludeDirs = []string{
	".git",
	".docdex",
	".obsidian",
	"node_modules",
}

// defaultExtensions are the document types indexed out of the box.
var defaultExtensions = []string{".md", ".markdown", ".txt"}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Root:    ".",
		Documents: DocumentsConfig{
			Extensions:    append([]string{}, defaultExtensions...),
			ExcludeDirs:   append([]string{}, defaultExcludeDirs...),
			MaxFileSizeMB: 10,
		},
		Watch: WatchConfig{
			Debounce:     "200ms",
			PollInterval: "5s",
			BufferSize:   1000,
		},
		Search: SearchConfig{
			Fuzziness:     1,
			TitleBoost:    3.0,
			BodyBoost:     2.0,
			TagBoost:      1.0,
			DefaultLimit:  5,
			MaxLimit:      50,
			ExcerptLength: 160,
		},
		Similarity: SimilarityConfig{
			DefaultLimit: 3,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "debug", // Debug by default to aid troubleshooting
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			DBPath:  "", // Empty resolves to ~/.docdex/telemetry.db
		},
	}
}

// DebounceDuration parses the debounce window, falling back to the default.
func (w WatchConfig) DebounceDuration() time.Duration {
	if d, err := time.ParseDuration(w.Debounce); err == nil && d >= 0 {
		return d
	}
	return 200 * time.Millisecond
}

// PollDuration parses the poll interval, falling back to the default.
func (w WatchConfig) PollDuration() time.Duration {
	if d, err := time.ParseDuration(w.PollInterval); err == nil && d > 0 {
		return d
	}
	return 5 * time.Second
}

// MaxFileSizeBytes returns the file size cap in bytes.
func (d DocumentsConfig) MaxFileSizeBytes() int64 {
	if d.MaxFileSizeMB <= 0 {
		return 10 * 1024 * 1024
	}
	return int64(d.MaxFileSizeMB) * 1024 * 1024
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docdex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docdex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "docdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "docdex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	// Check if file exists
	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	// Load the config
	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/docdex/config.yaml)
//  3. Project config (.docdex.yaml in the root)
//  4. Environment variables (DOCDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// Step 1: Load user/global config (if exists)
	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	// Step 2: Load project config (overrides user config)
	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	// Step 3: Apply environment variable overrides (highest precedence)
	cfg.applyEnvOverrides()

	// Step 4: Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .docdex.yaml or .docdex.yml.
func (c *Config) loadFromFile(dir string) error {
	// Try .yaml first (takes precedence)
	yamlPath := filepath.Join(dir, ".docdex.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	// Try .yml as fallback
	ymlPath := filepath.Join(dir, ".docdex.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Use a temporary struct for parsing to detect type errors
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Merge parsed values with defaults (only non-zero values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Root != "" {
		c.Root = other.Root
	}

	// Documents
	if len(other.Documents.Extensions) > 0 {
		c.Documents.Extensions = other.Documents.Extensions
	}
	if len(other.Documents.ExcludeDirs) > 0 {
		// Merge with defaults rather than replace
		c.Documents.ExcludeDirs = append(c.Documents.ExcludeDirs, other.Documents.ExcludeDirs...)
	}
	if other.Documents.MaxFileSizeMB != 0 {
		c.Documents.MaxFileSizeMB = other.Documents.MaxFileSizeMB
	}

	// Watch
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}
	if other.Watch.BufferSize != 0 {
		c.Watch.BufferSize = other.Watch.BufferSize
	}

	// Search
	// Note: 0 fuzziness is expressed by omitting the key; exact-match users
	// set it via DOCDEX_FUZZINESS which supports explicit zero.
	if other.Search.Fuzziness != 0 {
		c.Search.Fuzziness = other.Search.Fuzziness
	}
	if other.Search.TitleBoost != 0 {
		c.Search.TitleBoost = other.Search.TitleBoost
	}
	if other.Search.BodyBoost != 0 {
		c.Search.BodyBoost = other.Search.BodyBoost
	}
	if other.Search.TagBoost != 0 {
		c.Search.TagBoost = other.Search.TagBoost
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.ExcerptLength != 0 {
		c.Search.ExcerptLength = other.Search.ExcerptLength
	}

	// Similarity
	if other.Similarity.DefaultLimit != 0 {
		c.Similarity.DefaultLimit = other.Similarity.DefaultLimit
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	// Telemetry
	if other.Telemetry.DBPath != "" {
		c.Telemetry.DBPath = other.Telemetry.DBPath
	}
	// Enabled is boolean - only merge when some other telemetry key is set,
	// since yaml.Unmarshal cannot distinguish "false" from "absent".
	if other.Telemetry.DBPath != "" {
		c.Telemetry.Enabled = other.Telemetry.Enabled
	}
}

// applyEnvOverrides applies DOCDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCDEX_ROOT"); v != "" {
		c.Root = v
	}
	// Fuzziness env override supports explicit zero for exact matching.
	if v := os.Getenv("DOCDEX_FUZZINESS"); v != "" {
		if f, err := strconv.Atoi(v); err == nil && f >= 0 && f <= 2 {
			c.Search.Fuzziness = f
		}
	}
	if v := os.Getenv("DOCDEX_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("DOCDEX_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("DOCDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCDEX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("DOCDEX_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("DOCDEX_TELEMETRY_DB"); v != "" {
		c.Telemetry.DBPath = v
	}
}

// FindProjectRoot finds the document root directory.
// It looks for a .docdex.yaml/.yml file or a .git directory by walking up
// the directory tree. Falls back to the starting directory.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		// Check for .docdex.yaml or .docdex.yml
		if fileExists(filepath.Join(currentDir, ".docdex.yaml")) ||
			fileExists(filepath.Join(currentDir, ".docdex.yml")) {
			return currentDir, nil
		}

		// Check for .git directory
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.Fuzziness < 0 || c.Search.Fuzziness > 2 {
		return fmt.Errorf("search.fuzziness must be between 0 and 2, got %d", c.Search.Fuzziness)
	}
	if c.Search.TitleBoost <= 0 || c.Search.BodyBoost <= 0 || c.Search.TagBoost <= 0 {
		return fmt.Errorf("search boosts must be positive, got title=%.1f body=%.1f tag=%.1f",
			c.Search.TitleBoost, c.Search.BodyBoost, c.Search.TagBoost)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit must be >= default_limit, got %d < %d",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.ExcerptLength <= 0 {
		return fmt.Errorf("search.excerpt_length must be positive, got %d", c.Search.ExcerptLength)
	}
	if c.Similarity.DefaultLimit <= 0 {
		return fmt.Errorf("similarity.default_limit must be positive, got %d", c.Similarity.DefaultLimit)
	}

	if len(c.Documents.Extensions) == 0 {
		return fmt.Errorf("documents.extensions must not be empty")
	}
	for _, ext := range c.Documents.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("documents.extensions entries must start with '.', got %q", ext)
		}
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce is not a valid duration: %q", c.Watch.Debounce)
	}
	if _, err := time.ParseDuration(c.Watch.PollInterval); err != nil {
		return fmt.Errorf("watch.poll_interval is not a valid duration: %q", c.Watch.PollInterval)
	}
	if c.Watch.BufferSize <= 0 {
		return fmt.Errorf("watch.buffer_size must be positive, got %d", c.Watch.BufferSize)
	}

	// Validate transport
	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	// Validate log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// TelemetryDBPath resolves the telemetry database path, defaulting to
// ~/.docdex/telemetry.db when unset.
func (c *Config) TelemetryDBPath() string {
	if c.Telemetry.DBPath != "" {
		return c.Telemetry.DBPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docdex", "telemetry.db")
	}
	return filepath.Join(home, ".docdex", "telemetry.db")
}
