package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateReading(); err != nil {
		return err
	}
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Filename != filepath.Base(c.Store.Filename) {
		return fmt.Errorf("store.filename %q must be a bare file name", c.Store.Filename)
	}
	return nil
}

func (c *Config) validateReading() error {
	if c.Reading.DebounceMS > 10_000 {
		return errors.New("reading.debounce_ms must be at most 10000")
	}
	return nil
}

func (c *Config) validateLookup() error {
	parsed, err := url.Parse(c.Lookup.BaseURL)
	if err != nil {
		return fmt.Errorf("lookup.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("lookup.base_url must use http or https, got %q", c.Lookup.BaseURL)
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
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
