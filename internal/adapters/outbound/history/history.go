// Package history keeps a capped JSON log of validation runs under the
// .luaguard state directory.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdidvp/luaguard/internal/domain"
)

// MaxEntries caps the log; the oldest entries are dropped first.
const MaxEntries = 500

// Path returns the log file used for dir.
func Path(dir string) string {
	return filepath.Join(dir, ".luaguard", "history", "reports.json")
}

// FileHistory implements domain.RunHistory.
type FileHistory struct{}

func New() *FileHistory { return &FileHistory{} }

// Save appends entry to dir's log. The file is replaced atomically so a
// crash mid-write never leaves a truncated log.
func (h *FileHistory) Save(dir string, entry domain.HistoryEntry) error {
	entries, err := h.Load(dir)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if over := len(entries) - MaxEntries; over > 0 {
		entries = entries[over:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return writeAtomic(Path(dir), data)
}

// Load returns dir's log, oldest first. A missing log is empty.
func (h *FileHistory) Load(dir string) ([]domain.HistoryEntry, error) {
	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var entries []domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", Path(dir), err)
	}
	return entries, nil
}

// ForScript keeps the entries recorded for one script, in order.
func ForScript(entries []domain.HistoryEntry, script string) []domain.HistoryEntry {
	var out []domain.HistoryEntry
	for _, e := range entries {
		if e.ScriptName == script {
			out = append(out, e)
		}
	}
	return out
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".reports-*.json")
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
