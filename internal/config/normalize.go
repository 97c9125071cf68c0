package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizePlanner()
	if err := c.normalizeIndex(); err != nil {
		return err
	}
	if err := c.normalizeExclusions(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.PollInterval <= 0 {
		c.Watcher.PollInterval = defaultPollInterval
	}
	if c.Watcher.DebounceSeconds <= 0 {
		c.Watcher.DebounceSeconds = defaultDebounceSeconds
	}
	if c.Watcher.CleanupEveryTick <= 0 {
		c.Watcher.CleanupEveryTick = defaultCleanupEveryTick
	}
	if c.Watcher.StopGraceSeconds <= 0 {
		c.Watcher.StopGraceSeconds = defaultStopGraceSeconds
	}
	if c.Watcher.IndexPauseMillis < 0 {
		c.Watcher.IndexPauseMillis = defaultIndexPauseMillis
	}
}

func (c *Config) normalizePlanner() {
	if c.Planner.APIKey == "" {
		if value, ok := os.LookupEnv("FILEBUTLER_PLANNER_API_KEY"); ok {
			c.Planner.APIKey = value
		}
	}
	c.Planner.APIKey = strings.TrimSpace(c.Planner.APIKey)
	c.Planner.BaseURL = strings.TrimSpace(c.Planner.BaseURL)
	if c.Planner.BaseURL == "" {
		c.Planner.BaseURL = defaultPlannerBaseURL
	}
	c.Planner.Model = strings.TrimSpace(c.Planner.Model)
	if c.Planner.Model == "" {
		c.Planner.Model = defaultPlannerModel
	}
	c.Planner.Title = strings.TrimSpace(c.Planner.Title)
	if c.Planner.Title == "" {
		c.Planner.Title = defaultPlannerTitle
	}
	if c.Planner.TimeoutSeconds <= 0 {
		c.Planner.TimeoutSeconds = defaultPlannerTimeout
	}
}

func (c *Config) normalizeIndex() error {
	c.Index.Path = strings.TrimSpace(c.Index.Path)
	if c.Index.Path != "" {
		var err error
		if c.Index.Path, err = expandPath(c.Index.Path); err != nil {
			return fmt.Errorf("index.path: %w", err)
		}
	}
	if c.Index.MaxIndexedFiles < 0 {
		c.Index.MaxIndexedFiles = 0
	}
	return nil
}

func (c *Config) normalizeExclusions() error {
	patterns := make([]string, 0, len(c.Exclusions.Patterns))
	for _, pattern := range c.Exclusions.Patterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Exclusions.Patterns = patterns

	c.Exclusions.PinsPath = strings.TrimSpace(c.Exclusions.PinsPath)
	if c.Exclusions.PinsPath != "" {
		var err error
		if c.Exclusions.PinsPath, err = expandPath(c.Exclusions.PinsPath); err != nil {
			return fmt.Errorf("exclusions.pins_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
