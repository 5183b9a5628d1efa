package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDB == "" {
		return errors.New("paths.library_db must be set")
	}
	if c.Paths.CacheDB == "" {
		return errors.New("paths.cache_db must be set")
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if c.Reconcile.MaxDistance < 0 || c.Reconcile.MaxDistance > 1 {
		return errors.New("reconcile.max_distance must be between 0 and 1")
	}
	if c.Reconcile.CacheTTLDays < 1 {
		return errors.New("reconcile.cache_ttl_days must be at least 1")
	}
	if c.Reconcile.FetchTimeout < 1 {
		return errors.New("reconcile.fetch_timeout must be at least 1 second")
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
