package testsupport

import (
	"path/filepath"
	"testing"

	"hanzireader/internal/config"
)

// envOverrides are cleared for every test config so a developer's shell
// cannot redirect a test's database or lookup endpoint.
var envOverrides = []string{
	"HANZIREADER_DATA_DIR",
	"HANZIREADER_LOG_DIR",
	"HANZIREADER_STORE_FILENAME",
	"HANZIREADER_LOOKUP_BASE_URL",
	"HANZIREADER_LOG_LEVEL",
	"HANZIREADER_LOG_FORMAT",
	"HANZIREADER_DEBOUNCE_MS",
}

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns a config rooted in a fresh temp directory:
// <tmp>/data for the database and <tmp>/logs for the log file. The tracker
// debounce is 10ms so timing tests settle quickly, and the lookup endpoint
// points at a closed port until WithLookupURL replaces it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	for _, key := range envOverrides {
		t.Setenv(key, "")
	}

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Reading.DebounceMS = 10
	cfg.Lookup.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLookupURL points the lookup client at a test server.
func WithLookupURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Lookup.BaseURL = url
	}
}

// WithDebounce overrides the tracker debounce window in milliseconds.
func WithDebounce(ms int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Reading.DebounceMS = ms
	}
}

// WithCacheMaxAge sets both cache expiry windows, in hours.
func WithCacheMaxAge(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.DictionaryMaxAgeHours = hours
		cfg.Cache.AudioMaxAgeHours = hours
	}
}

// BaseDir returns the temp directory backing cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
