package domain

import (
	"fmt"
	"slices"
	"time"
)

// DefaultWeights is the documented score weighting. Educational only counts
// when it runs.
var DefaultWeights = map[CheckerName]float64{
	CheckerSecurity:    0.35,
	CheckerQuality:     0.20,
	CheckerCompliance:  0.20,
	CheckerSyntax:      0.15,
	CheckerEducational: 0.10,
}

// SecurityFlags lists the compliance map keys the security analyzer emits.
var SecurityFlags = []string{
	"no_dangerous_functions",
	"input_validation_present",
	"no_hardcoded_credentials",
	"rate_limiting_present",
}

const (
	DefaultCheckerTimeout   = 5 * time.Second
	DefaultMaxScriptBytes   = 1 << 20
	DefaultBatchConcurrency = 4
)

// EngineConfig holds engine configuration loaded from .luaguard.yaml.
type EngineConfig struct {
	Weights          map[CheckerName]float64 `yaml:"weights"           json:"weights,omitempty"`
	CheckerTimeout   Duration                `yaml:"checker_timeout"   json:"checker_timeout,omitempty"`
	MaxScriptBytes   int                     `yaml:"max_script_bytes"  json:"max_script_bytes,omitempty"`
	BatchConcurrency int                     `yaml:"batch_concurrency" json:"batch_concurrency,omitempty"`

	// RequiredSecurityFlags must all be true for a report to be platform
	// compliant. Nil means the default set; an empty list disables the gate.
	RequiredSecurityFlags []string           `yaml:"required_security_flags" json:"required_security_flags,omitempty"`
	Quality               QualityProfile     `yaml:"quality"                 json:"quality"`
	Educational           EducationalProfile `yaml:"educational"             json:"educational"`
	RulesFile             string             `yaml:"rules_file"              json:"rules_file,omitempty"`
}

// QualityProfile carries the thresholds the quality checker scores against.
type QualityProfile struct {
	MaxComplexity    int     `yaml:"max_complexity"     json:"max_complexity"`
	MaxNesting       int     `yaml:"max_nesting"        json:"max_nesting"`
	MaxFunctionLines int     `yaml:"max_function_lines" json:"max_function_lines"`
	MaxParams        int     `yaml:"max_params"         json:"max_params"`
	MinCommentRatio  float64 `yaml:"min_comment_ratio"  json:"min_comment_ratio"`
}

// EducationalProfile carries the educational checker's targets.
type EducationalProfile struct {
	// SubjectTarget is the number of distinct lexicon hits that counts as
	// full subject alignment.
	SubjectTarget int `yaml:"subject_target" json:"subject_target"`
	// EngagementTarget is the number of distinct engagement signals that
	// counts as full engagement.
	EngagementTarget int `yaml:"engagement_target" json:"engagement_target"`
	// ObjectiveThreshold is the share of an objective's words that must
	// appear for it to count as addressed.
	ObjectiveThreshold float64 `yaml:"objective_threshold" json:"objective_threshold"`
}

// Duration is a time.Duration that reads "5s" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DefaultQualityProfile returns the stock quality thresholds.
func DefaultQualityProfile() QualityProfile {
	return QualityProfile{
		MaxComplexity:    10,
		MaxNesting:       4,
		MaxFunctionLines: 60,
		MaxParams:        5,
		MinCommentRatio:  0.10,
	}
}

// DefaultEducationalProfile returns the stock educational targets.
func DefaultEducationalProfile() EducationalProfile {
	return EducationalProfile{
		SubjectTarget:      4,
		EngagementTarget:   2,
		ObjectiveThreshold: 0.5,
	}
}

// DefaultConfig returns the documented default configuration.
func DefaultConfig() EngineConfig {
	weights := make(map[CheckerName]float64, len(DefaultWeights))
	for k, v := range DefaultWeights {
		weights[k] = v
	}
	return EngineConfig{
		Weights:               weights,
		CheckerTimeout:        Duration(DefaultCheckerTimeout),
		MaxScriptBytes:        DefaultMaxScriptBytes,
		BatchConcurrency:      DefaultBatchConcurrency,
		RequiredSecurityFlags: []string{"no_dangerous_functions", "no_hardcoded_credentials"},
		Quality:               DefaultQualityProfile(),
		Educational:           DefaultEducationalProfile(),
	}
}

// Timeout returns the per-checker timeout.
func (c EngineConfig) Timeout() time.Duration { return time.Duration(c.CheckerTimeout) }

// Weight returns the configured weight for a checker.
func (c EngineConfig) Weight(name CheckerName) float64 {
	if w, ok := c.Weights[name]; ok {
		return w
	}
	return DefaultWeights[name]
}

// Merge overlays the non-zero fields of override onto c.
func (c EngineConfig) Merge(override EngineConfig) EngineConfig {
	result := c
	if len(override.Weights) > 0 {
		result.Weights = make(map[CheckerName]float64, len(c.Weights))
		for k, v := range c.Weights {
			result.Weights[k] = v
		}
		for k, v := range override.Weights {
			result.Weights[k] = v
		}
	}
	if override.CheckerTimeout > 0 {
		result.CheckerTimeout = override.CheckerTimeout
	}
	if override.MaxScriptBytes > 0 {
		result.MaxScriptBytes = override.MaxScriptBytes
	}
	if override.BatchConcurrency > 0 {
		result.BatchConcurrency = override.BatchConcurrency
	}
	if override.RequiredSecurityFlags != nil {
		result.RequiredSecurityFlags = override.RequiredSecurityFlags
	}
	q := override.Quality
	if q.MaxComplexity > 0 {
		result.Quality.MaxComplexity = q.MaxComplexity
	}
	if q.MaxNesting > 0 {
		result.Quality.MaxNesting = q.MaxNesting
	}
	if q.MaxFunctionLines > 0 {
		result.Quality.MaxFunctionLines = q.MaxFunctionLines
	}
	if q.MaxParams > 0 {
		result.Quality.MaxParams = q.MaxParams
	}
	if q.MinCommentRatio > 0 {
		result.Quality.MinCommentRatio = q.MinCommentRatio
	}
	e := override.Educational
	if e.SubjectTarget > 0 {
		result.Educational.SubjectTarget = e.SubjectTarget
	}
	if e.EngagementTarget > 0 {
		result.Educational.EngagementTarget = e.EngagementTarget
	}
	if e.ObjectiveThreshold > 0 {
		result.Educational.ObjectiveThreshold = e.ObjectiveThreshold
	}
	if override.RulesFile != "" {
		result.RulesFile = override.RulesFile
	}
	return result
}

// Validate checks the config for invalid values and returns a descriptive error.
func (c EngineConfig) Validate() error {
	// 1. weights keys must be known checkers, values non-negative
	total := 0.0
	for k, w := range c.Weights {
		if !slices.Contains(CheckerOrder, k) {
			return fmt.Errorf("unknown checker %q in weights", k)
		}
		if w < 0 {
			return fmt.Errorf("weights[%q] = %.2f (must be >= 0)", k, w)
		}
		total += w
	}
	if len(c.Weights) > 0 && total == 0 {
		return fmt.Errorf("weights must not all be zero")
	}

	// 2. limits must be positive
	if c.CheckerTimeout < 0 {
		return fmt.Errorf("checker_timeout must be > 0 (got %s)", time.Duration(c.CheckerTimeout))
	}
	if c.MaxScriptBytes < 0 {
		return fmt.Errorf("max_script_bytes must be > 0 (got %d)", c.MaxScriptBytes)
	}
	if c.BatchConcurrency < 0 {
		return fmt.Errorf("batch_concurrency must be > 0 (got %d)", c.BatchConcurrency)
	}

	// 3. security flags must be known
	for _, f := range c.RequiredSecurityFlags {
		if !slices.Contains(SecurityFlags, f) {
			return fmt.Errorf("unknown security flag %q in required_security_flags", f)
		}
	}

	// 4. objective threshold is a ratio
	if t := c.Educational.ObjectiveThreshold; t < 0 || t > 1 {
		return fmt.Errorf("educational.objective_threshold must be between 0.0 and 1.0 (got %.2f)", t)
	}
	if c.Quality.MinCommentRatio < 0 || c.Quality.MinCommentRatio > 1 {
		return fmt.Errorf("quality.min_comment_ratio must be between 0.0 and 1.0 (got %.2f)", c.Quality.MinCommentRatio)
	}

	return nil
}
