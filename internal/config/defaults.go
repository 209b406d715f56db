package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultLogDir                = "~/.local/share/hanzireader/logs"
	defaultStoreFilename         = "reader.db"
	defaultBusyTimeoutMS         = 5000
	defaultDictionaryMaxAgeHours = 7 * 24
	defaultAudioMaxAgeHours      = 7 * 24
	defaultDebounceMS            = 100
	defaultWriteTimeoutMS        = 2000
	defaultLinesPerPage          = 20
	defaultLookupBaseURL         = "http://localhost:3000"
	defaultLookupTimeoutSeconds  = 15
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir(),
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Filename:      defaultStoreFilename,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Cache: Cache{
			DictionaryMaxAgeHours: defaultDictionaryMaxAgeHours,
			AudioMaxAgeHours:      defaultAudioMaxAgeHours,
		},
		Reading: Reading{
			DebounceMS:     defaultDebounceMS,
			WriteTimeoutMS: defaultWriteTimeoutMS,
			LinesPerPage:   defaultLinesPerPage,
		},
		Lookup: Lookup{
			BaseURL:        defaultLookupBaseURL,
			TimeoutSeconds: defaultLookupTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "hanzireader")
	}
	return "~/.local/share/hanzireader"
}
