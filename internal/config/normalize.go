package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the HANZIREADER_* variables that take precedence over the
// config file. Zero values mean "not set".
type envOverrides struct {
	DataDir       string `env:"HANZIREADER_DATA_DIR"`
	LogDir        string `env:"HANZIREADER_LOG_DIR"`
	StoreFilename string `env:"HANZIREADER_STORE_FILENAME"`
	LookupBaseURL string `env:"HANZIREADER_LOOKUP_BASE_URL"`
	LogLevel      string `env:"HANZIREADER_LOG_LEVEL"`
	LogFormat     string `env:"HANZIREADER_LOG_FORMAT"`
	DebounceMS    int    `env:"HANZIREADER_DEBOUNCE_MS"`
}

func (c *Config) normalize() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeCache()
	c.normalizeReading()
	c.normalizeLookup()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if v := strings.TrimSpace(overrides.DataDir); v != "" {
		c.Paths.DataDir = v
	}
	if v := strings.TrimSpace(overrides.LogDir); v != "" {
		c.Paths.LogDir = v
	}
	if v := strings.TrimSpace(overrides.StoreFilename); v != "" {
		c.Store.Filename = v
	}
	if v := strings.TrimSpace(overrides.LookupBaseURL); v != "" {
		c.Lookup.BaseURL = v
	}
	if v := strings.TrimSpace(overrides.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(overrides.LogFormat); v != "" {
		c.Logging.Format = v
	}
	if overrides.DebounceMS > 0 {
		c.Reading.DebounceMS = overrides.DebounceMS
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Filename = strings.TrimSpace(c.Store.Filename)
	if c.Store.Filename == "" {
		c.Store.Filename = defaultStoreFilename
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.DictionaryMaxAgeHours <= 0 {
		c.Cache.DictionaryMaxAgeHours = defaultDictionaryMaxAgeHours
	}
	if c.Cache.AudioMaxAgeHours <= 0 {
		c.Cache.AudioMaxAgeHours = defaultAudioMaxAgeHours
	}
}

func (c *Config) normalizeReading() {
	if c.Reading.DebounceMS <= 0 {
		c.Reading.DebounceMS = defaultDebounceMS
	}
	if c.Reading.WriteTimeoutMS <= 0 {
		c.Reading.WriteTimeoutMS = defaultWriteTimeoutMS
	}
	if c.Reading.LinesPerPage <= 0 {
		c.Reading.LinesPerPage = defaultLinesPerPage
	}
}

func (c *Config) normalizeLookup() {
	c.Lookup.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lookup.BaseURL), "/")
	if c.Lookup.BaseURL == "" {
		c.Lookup.BaseURL = defaultLookupBaseURL
	}
	if c.Lookup.TimeoutSeconds <= 0 {
		c.Lookup.TimeoutSeconds = defaultLookupTimeoutSeconds
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
