package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
)

// rename is swappable so tests can inject a failure between writing the
// temporary file and publishing it.
var rename = os.Rename

// WriteFile atomically replaces the file at path with data.
//
// The data is written to a temporary file in the same directory, fsynced,
// then renamed over the destination. A crash at any point leaves the original
// file either fully replaced or byte-identical to its pre-write state, never
// partially overwritten. The temporary file is removed on every failure path.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".pytextgen-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file over %s: %w", path, err)
	}

	// Best-effort metadata durability: fsync the parent directory so the
	// rename itself survives a crash.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
