package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if c.Watcher.PollInterval <= 0 {
		return errors.New("watcher.poll_interval must be positive")
	}
	if c.Watcher.DebounceSeconds <= 0 {
		return errors.New("watcher.debounce_seconds must be positive")
	}
	if c.Watcher.DebounceSeconds >= c.Watcher.PollInterval*c.Watcher.CleanupEveryTick {
		return fmt.Errorf(
			"watcher.debounce_seconds (%d) must be shorter than a full cleanup cycle (%d)",
			c.Watcher.DebounceSeconds, c.Watcher.PollInterval*c.Watcher.CleanupEveryTick,
		)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
