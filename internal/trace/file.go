package trace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Save atomically writes t to path using the temp file + rename pattern.
// The temp file is closed and removed on every failure path.
func Save(path string, t *Trace) (err error) {
	if path == "" {
		return fmt.Errorf("trace path cannot be empty")
	}
	if t == nil {
		return fmt.Errorf("trace cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid trace %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp trace file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := Encode(tmp, t); err != nil {
		return fmt.Errorf("failed to write trace %s: %w", path, err)
	}
	// Sync to disk for durability before the rename makes it visible
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename trace file: %w", err)
	}

	slog.Debug("Trace saved", "path", path, "snapshots", len(t.Snapshots))
	return nil
}

// Load reads the trace stored at path. Format problems are reported as a
// *CorruptTraceError carrying the path.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace %s: %w", path, err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		var corrupt *CorruptTraceError
		if errors.As(err, &corrupt) {
			corrupt.Path = path
			return nil, corrupt
		}
		return nil, fmt.Errorf("failed to read trace %s: %w", path, err)
	}

	slog.Debug("Trace loaded", "path", path, "snapshots", len(t.Snapshots))
	return t, nil
}

// Delete removes the trace file at path. Returns nil if it doesn't exist.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete trace file: %w", err)
	}
	return nil
}
