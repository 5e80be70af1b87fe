// Package config reads the engine configuration from .luaguard.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/abdidvp/luaguard/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".luaguard.yaml"

// YAMLLoader implements domain.ConfigLoader.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load returns the engine config for dir: defaults when dir has no
// .luaguard.yaml, otherwise the file's settings laid over the defaults.
// Unknown keys are rejected. A relative rules_file is resolved against dir.
func (l *YAMLLoader) Load(dir string) (domain.EngineConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return domain.DefaultConfig(), nil
	}
	if err != nil {
		return domain.EngineConfig{}, fmt.Errorf("reading %s: %w", FileName, err)
	}

	user, err := decode(data)
	if err != nil {
		return domain.EngineConfig{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := user.Validate(); err != nil {
		return domain.EngineConfig{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}

	cfg := domain.DefaultConfig().Merge(user)
	if cfg.RulesFile != "" && !filepath.IsAbs(cfg.RulesFile) {
		cfg.RulesFile = filepath.Join(dir, cfg.RulesFile)
	}
	return cfg, nil
}

func decode(data []byte) (domain.EngineConfig, error) {
	var cfg domain.EngineConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return domain.EngineConfig{}, err
	}
	return cfg, nil
}
