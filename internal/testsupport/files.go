package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteCorruptDatabase plants a file at path that SQLite cannot open as a
// database: a few pages of filler with no valid header.
func WriteCorruptDatabase(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte("not a database "), 512), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
