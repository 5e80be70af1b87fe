package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".luaguard":    true,
	"Packages":     true,
	"DevPackages":  true,
	"dist":         true,
	"build":        true,
}

var extensions = []string{".lua", ".luau"}

// FileScanner implements domain.ScriptScanner by walking the filesystem.
type FileScanner struct{}

func New() *FileScanner {
	return &FileScanner{}
}

// IsScript reports whether name has a Luau source extension.
func IsScript(name string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(name)))
}

// Scan returns path itself when it is a file, or every script below it when
// it is a directory. Wally package folders and VCS metadata are skipped.
func (s *FileScanner) Scan(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if IsScript(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	slices.Sort(files)
	return files, nil
}
