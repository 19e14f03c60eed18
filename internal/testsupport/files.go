package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"romdex/internal/config"
)

// WriteROM creates a dummy dump file under the config's rom directory and
// returns its full path. A size <= 0 writes a single byte.
func WriteROM(t testing.TB, cfg *config.Config, name string, size int64) string {
	t.Helper()

	path := filepath.Join(cfg.Paths.RomDir, name)
	WriteFile(t, path, size)
	return path
}

// WriteFile fills the target path with the requested number of bytes.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
