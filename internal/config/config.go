package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Watcher contains timing knobs for folder watching and worker scheduling.
type Watcher struct {
	PollInterval     int `toml:"poll_interval"`
	DebounceSeconds  int `toml:"debounce_seconds"`
	CleanupEveryTick int `toml:"cleanup_every_ticks"`
	StopGraceSeconds int `toml:"stop_grace_seconds"`
	IndexPauseMillis int `toml:"index_pause_ms"`
}

// Planner contains connection settings for the organization planner.
type Planner struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Index contains configuration for the file index database.
type Index struct {
	Path            string `toml:"path"`
	MaxIndexedFiles int    `toml:"max_indexed_files"`
}

// Exclusions contains user-defined ignore patterns and the pin store location.
type Exclusions struct {
	Patterns []string `toml:"patterns"`
	PinsPath string   `toml:"pins_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for filebutler.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Watcher: poll/debounce timing and worker stop grace
//   - Planner: LLM connection settings for organization planning
//   - Index: file index database location and capacity
//   - Exclusions: ignore patterns and pinned path store
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watcher       Watcher       `toml:"watcher"`
	Planner       Planner       `toml:"planner"`
	Index         Index         `toml:"index"`
	Exclusions    Exclusions    `toml:"exclusions"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/filebutler/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("filebutler.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IndexPath returns the resolved file index database path.
func (c *Config) IndexPath() string {
	if strings.TrimSpace(c.Index.Path) != "" {
		return c.Index.Path
	}
	return filepath.Join(c.Paths.DataDir, "index.db")
}

// PinsPath returns the resolved pinned path store location.
func (c *Config) PinsPath() string {
	if strings.TrimSpace(c.Exclusions.PinsPath) != "" {
		return c.Exclusions.PinsPath
	}
	return filepath.Join(c.Paths.DataDir, "pins.toml")
}

// PollInterval returns the watcher poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.PollInterval) * time.Second
}

// DebounceThreshold returns how long a file must sit unchanged before dispatch.
func (c *Config) DebounceThreshold() time.Duration {
	return time.Duration(c.Watcher.DebounceSeconds) * time.Second
}

// StopGrace returns how long Stop waits for a running worker.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Watcher.StopGraceSeconds) * time.Second
}

// IndexPause returns the pause inserted between single-file indexing calls.
func (c *Config) IndexPause() time.Duration {
	return time.Duration(c.Watcher.IndexPauseMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
