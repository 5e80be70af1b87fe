package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Store is a file-based implementation of domain.ReportCache. Reports are
// kept one per file under <root>/.luaguard/cache, named by content key.
type Store struct {
	root string
}

// New creates a cache store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Load reads a cached report. Returns (nil, nil) if no entry exists.
func (s *Store) Load(key string) (*domain.Report, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // no cache is not an error
		}
		return nil, err
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding cached report %s: %w", key, err)
	}
	return &report, nil
}

// Save writes a report under key, creating directories as needed.
func (s *Store) Save(key string, report *domain.Report) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Invalidate removes every cached report.
func (s *Store) Invalidate() error {
	return os.RemoveAll(s.dir())
}

func (s *Store) dir() string {
	return filepath.Join(s.root, ".luaguard", "cache")
}

func (s *Store) path(key string) (string, error) {
	if key == "" || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir(), key+".json"), nil
}
