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

	"hanzireader/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store contains configuration for the local progress and cache database.
type Store struct {
	Filename      string `toml:"filename"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// Cache contains expiry settings for the dictionary and audio caches.
type Cache struct {
	DictionaryMaxAgeHours int  `toml:"dictionary_max_age_hours"`
	AudioMaxAgeHours      int  `toml:"audio_max_age_hours"`
	SweepOnStart          bool `toml:"sweep_on_start"`
}

// Reading contains configuration for the reading progress tracker.
type Reading struct {
	DebounceMS     int `toml:"debounce_ms"`
	WriteTimeoutMS int `toml:"write_timeout_ms"`
	LinesPerPage   int `toml:"lines_per_page"`
}

// Lookup contains configuration for the word lookup proxy endpoints.
type Lookup struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hanzireader.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: database file name and lock wait
//   - Cache: dictionary/audio expiry windows
//   - Reading: scroll debounce and pagination
//   - Lookup: word-info and text-to-speech proxy
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Cache   Cache   `toml:"cache"`
	Reading Reading `toml:"reading"`
	Lookup  Lookup  `toml:"lookup"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns ~/.config/hanzireader/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/hanzireader/config.toml")
}

// Load reads the configuration at path, or the first existing default
// location when path is empty, then applies environment overrides and
// validates. It also returns the resolved path and whether a file was read;
// with no file the defaults are used.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locateConfig resolves an explicit path, which must exist, or searches the
// user config directory and then ./hanzireader.toml.
func locateConfig(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		switch info, err := os.Stat(expanded); {
		case errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("config file %q does not exist", expanded)
		case err != nil:
			return "", false, fmt.Errorf("stat config %q: %w", expanded, err)
		case info.IsDir():
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	fallback, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("hanzireader.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{fallback, local} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return fallback, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the absolute path of the progress and cache database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, c.Store.Filename)
}

// BusyTimeout returns how long SQLite waits on a locked database.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// DictionaryMaxAge returns the expiry window for cached dictionary entries.
func (c *Config) DictionaryMaxAge() time.Duration {
	return time.Duration(c.Cache.DictionaryMaxAgeHours) * time.Hour
}

// AudioMaxAge returns the expiry window for cached audio clips.
func (c *Config) AudioMaxAge() time.Duration {
	return time.Duration(c.Cache.AudioMaxAgeHours) * time.Hour
}

// Debounce returns the scroll sampling window used before persisting progress.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Reading.DebounceMS) * time.Millisecond
}

// WriteTimeout bounds a single debounced progress write.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Reading.WriteTimeoutMS) * time.Millisecond
}

// LookupTimeout bounds a single proxy request.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Lookup.TimeoutSeconds) * time.Second
}

// ExpandPath resolves a leading "~" to the home directory and returns the
// cleaned absolute path. Empty input stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, p[1:])
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
