// Package rules loads the declarative rule catalogue. The stock catalogue
// is embedded; a user file replaces the sections it defines.
package rules

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/abdidvp/luaguard/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Default returns the raw embedded catalogue.
func Default() []byte { return defaultRules }

// Loader implements domain.RuleLoader.
type Loader struct{}

// New creates a Loader.
func New() *Loader { return &Loader{} }

// Load decodes the embedded catalogue, overlays overridePath when set and
// compiles the result. The set's Digest covers both sources byte for byte.
func (l *Loader) Load(overridePath string) (*domain.RuleSet, error) {
	var rs domain.RuleSet
	if err := yaml.Unmarshal(defaultRules, &rs); err != nil {
		return nil, fmt.Errorf("parsing embedded rules: %w", err)
	}
	h := sha256.New()
	h.Write(defaultRules)

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("reading rules file: %w", err)
		}
		var override domain.RuleSet
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", overridePath, err)
		}
		rs = overlay(rs, override)
		h.Write([]byte{0})
		h.Write(data)
	}
	rs.Digest = hex.EncodeToString(h.Sum(nil))

	if err := rs.Compile(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return &rs, nil
}

// overlay replaces every section the override defines. An explicitly empty
// section disables it.
func overlay(base, override domain.RuleSet) domain.RuleSet {
	result := base
	if override.Version != "" {
		result.Version = override.Version
	}
	if override.Syntax != nil {
		result.Syntax = override.Syntax
	}
	if override.Security != nil {
		result.Security = override.Security
	}
	if override.Guards != nil {
		result.Guards = override.Guards
	}
	if override.Content != nil {
		result.Content = override.Content
	}
	if override.Subjects != nil {
		result.Subjects = override.Subjects
	}
	if override.Engagement != nil {
		result.Engagement = override.Engagement
	}
	if override.Policies != nil {
		result.Policies = override.Policies
	}
	return result
}
