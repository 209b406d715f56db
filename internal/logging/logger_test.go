package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hanzireader/internal/config"
	"hanzireader/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("store opened")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "hanzireader.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "store opened") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponentAndBook(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithBookID(context.Background(), "book-7")
	component := logging.NewComponentLogger(logger, "reading")
	logging.WithContext(ctx, component).Info("progress saved", logging.Float64("progress_percentage", 42.5))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO reading [book-7]: progress saved") {
		t.Fatalf("expected component and book prefix, got %q", line)
	}
	if !strings.Contains(line, "progress_percentage=42.5") {
		t.Fatalf("expected attribute in output, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Output: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("sweep failed", logging.Collection("audioCache"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "sweep failed" || entry["collection"] != "audioCache" {
		t.Fatalf("unexpected json entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "progress write dropped", "progress_write_failed",
		logging.Impact("position may lag by one sample"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldEventType] != "progress_write_failed" {
		t.Fatalf("expected event type, got %#v", entry)
	}
	if entry[logging.FieldErrorHint] != "run hanzireader store health" {
		t.Fatalf("expected default error hint, got %#v", entry)
	}
	if entry[logging.FieldImpact] != "position may lag by one sample" {
		t.Fatalf("expected caller impact preserved, got %#v", entry)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "store").Info("ignored")
}

func TestConsoleWarningTrailsGuidance(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logging.NewComponentLogger(logger, "store"), "cache sweep failed", "cache_sweep_failed",
		logging.Collection("audioCache"),
		logging.Impact("stale clips remain"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if !strings.Contains(line, "WARN store: cache sweep failed collection=audioCache event_type=cache_sweep_failed") {
		t.Fatalf("unexpected warning layout %q", line)
	}
	if !strings.HasSuffix(line, "(impact: stale clips remain; hint: run hanzireader store health)") {
		t.Fatalf("expected guidance at end of line, got %q", line)
	}
}

func TestJSONLoggerRendersDurations(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json-duration.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("debounce configured", logging.Duration("debounce", 150*time.Millisecond))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["debounce"] != "150ms" {
		t.Fatalf("expected duration string, got %#v", entry["debounce"])
	}
}
