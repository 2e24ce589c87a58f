// Package state persists the url -> lastmod manifest of the previous
// successful ingestion.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store reads and writes the manifest state file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store for the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Load returns the persisted manifest. A missing file yields an empty
// manifest; a corrupt file is logged and also yields an empty manifest,
// which makes the next run a full reindex. Losing state is safe: the
// index is rebuilt, never left inconsistent.
func (s *Store) Load() map[string]string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state file unreadable, starting fresh", "path", s.path, "error", err)
		}
		return map[string]string{}
	}

	manifest := map[string]string{}
	if err := json.Unmarshal(data, &manifest); err != nil {
		s.logger.Warn("state file corrupt, starting fresh", "path", s.path, "error", err)
		return map[string]string{}
	}
	return manifest
}

// Save writes the manifest atomically: serialize with sorted keys to a
// temp file in the same directory, then rename over the target. A
// crash mid-save can never leave a truncated state file.
func (s *Store) Save(manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }
