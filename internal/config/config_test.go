package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hanzireader/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_DATA_HOME", "")
	for _, key := range []string{
		"HANZIREADER_DATA_DIR",
		"HANZIREADER_LOG_DIR",
		"HANZIREADER_STORE_FILENAME",
		"HANZIREADER_LOOKUP_BASE_URL",
		"HANZIREADER_LOG_LEVEL",
		"HANZIREADER_LOG_FORMAT",
		"HANZIREADER_DEBOUNCE_MS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return tempHome
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "hanzireader")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.StorePath() != filepath.Join(wantData, "reader.db") {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
	if cfg.Debounce() != 100*time.Millisecond {
		t.Fatalf("expected 100ms debounce, got %s", cfg.Debounce())
	}
	if cfg.DictionaryMaxAge() != 7*24*time.Hour {
		t.Fatalf("expected 7 day dictionary max age, got %s", cfg.DictionaryMaxAge())
	}
	if cfg.AudioMaxAge() != 7*24*time.Hour {
		t.Fatalf("expected 7 day audio max age, got %s", cfg.AudioMaxAge())
	}
	if cfg.Reading.LinesPerPage != 20 {
		t.Fatalf("expected 20 lines per page, got %d", cfg.Reading.LinesPerPage)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := isolateEnv(t)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/reader-data",
		},
		"store": map[string]any{
			"filename": "custom.db",
		},
		"cache": map[string]any{
			"dictionary_max_age_hours": 48,
		},
		"reading": map[string]any{
			"debounce_ms": 250,
		},
		"lookup": map[string]any{
			"base_url": "https://reader.example.com/",
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "reader-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if filepath.Base(cfg.StorePath()) != "custom.db" {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
	if cfg.DictionaryMaxAge() != 48*time.Hour {
		t.Fatalf("unexpected dictionary max age: %s", cfg.DictionaryMaxAge())
	}
	if cfg.AudioMaxAge() != 7*24*time.Hour {
		t.Fatalf("expected audio max age default, got %s", cfg.AudioMaxAge())
	}
	if cfg.Debounce() != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.Debounce())
	}
	if cfg.Lookup.BaseURL != "https://reader.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Lookup.BaseURL)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging values lower-cased, got %+v", cfg.Logging)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	tempHome := isolateEnv(t)
	t.Setenv("HANZIREADER_DATA_DIR", filepath.Join(tempHome, "env-data"))
	t.Setenv("HANZIREADER_DEBOUNCE_MS", "40")
	t.Setenv("HANZIREADER_LOG_LEVEL", "warn")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "env-data") {
		t.Fatalf("expected env data dir, got %q", cfg.Paths.DataDir)
	}
	if cfg.Debounce() != 40*time.Millisecond {
		t.Fatalf("expected env debounce, got %s", cfg.Debounce())
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	tempHome := isolateEnv(t)

	_, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "store filename with directory",
			mutate:  func(c *config.Config) { c.Store.Filename = "nested/reader.db" },
			wantErr: "store.filename",
		},
		{
			name:    "lookup scheme",
			mutate:  func(c *config.Config) { c.Lookup.BaseURL = "ftp://example.com" },
			wantErr: "lookup.base_url",
		},
		{
			name:    "log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "log level",
			mutate:  func(c *config.Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
		{
			name:    "debounce ceiling",
			mutate:  func(c *config.Config) { c.Reading.DebounceMS = 60_000 },
			wantErr: "reading.debounce_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := isolateEnv(t)

	target := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Store.Filename != "reader.db" {
		t.Fatalf("unexpected store filename: %q", cfg.Store.Filename)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home := isolateEnv(t)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/books/../data", filepath.Join(home, "data")},
		{"/var/lib/reader/", "/var/lib/reader"},
	}
	for _, tc := range tests {
		got, err := config.ExpandPath(tc.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExpandPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
