package domain_test

import (
	"testing"
	"time"

	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_WeightsSumToOne(t *testing.T) {
	cfg := domain.DefaultConfig()
	total := 0.0
	for _, name := range domain.CheckerOrder {
		total += cfg.Weight(name)
	}
	assert.InDelta(t, 1.0, total, 0.0001)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 1<<20, cfg.MaxScriptBytes)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_ReturnsFreshMaps(t *testing.T) {
	a := domain.DefaultConfig()
	a.Weights[domain.CheckerSecurity] = 0.9
	assert.InDelta(t, 0.35, domain.DefaultConfig().Weight(domain.CheckerSecurity), 0.0001)
	assert.InDelta(t, 0.35, domain.DefaultWeights[domain.CheckerSecurity], 0.0001)
}

func TestEngineConfig_Merge(t *testing.T) {
	base := domain.DefaultConfig()
	merged := base.Merge(domain.EngineConfig{
		Weights:          map[domain.CheckerName]float64{domain.CheckerSecurity: 0.5},
		BatchConcurrency: 8,
		Quality:          domain.QualityProfile{MaxComplexity: 20},
		RulesFile:        "custom.yaml",
	})

	assert.InDelta(t, 0.5, merged.Weight(domain.CheckerSecurity), 0.0001)
	assert.InDelta(t, 0.20, merged.Weight(domain.CheckerQuality), 0.0001)
	assert.Equal(t, 8, merged.BatchConcurrency)
	assert.Equal(t, 20, merged.Quality.MaxComplexity)
	assert.Equal(t, 4, merged.Quality.MaxNesting)
	assert.Equal(t, "custom.yaml", merged.RulesFile)
	assert.Equal(t, base.Timeout(), merged.Timeout())
	assert.InDelta(t, 0.35, base.Weight(domain.CheckerSecurity), 0.0001, "merge must not modify the receiver")
}

func TestEngineConfig_MergeEmptySecurityFlags(t *testing.T) {
	merged := domain.DefaultConfig().Merge(domain.EngineConfig{RequiredSecurityFlags: []string{}})
	assert.NotNil(t, merged.RequiredSecurityFlags)
	assert.Empty(t, merged.RequiredSecurityFlags)

	kept := domain.DefaultConfig().Merge(domain.EngineConfig{})
	assert.Equal(t, domain.DefaultConfig().RequiredSecurityFlags, kept.RequiredSecurityFlags)
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.EngineConfig
		want string
	}{
		{"unknown checker", domain.EngineConfig{Weights: map[domain.CheckerName]float64{"speed": 1}}, "unknown checker"},
		{"negative weight", domain.EngineConfig{Weights: map[domain.CheckerName]float64{domain.CheckerSyntax: -1}}, "must be >= 0"},
		{"all zero", domain.EngineConfig{Weights: map[domain.CheckerName]float64{domain.CheckerSyntax: 0}}, "must not all be zero"},
		{"negative timeout", domain.EngineConfig{CheckerTimeout: domain.Duration(-time.Second)}, "checker_timeout"},
		{"negative size", domain.EngineConfig{MaxScriptBytes: -1}, "max_script_bytes"},
		{"negative concurrency", domain.EngineConfig{BatchConcurrency: -2}, "batch_concurrency"},
		{"unknown flag", domain.EngineConfig{RequiredSecurityFlags: []string{"no_bugs"}}, "unknown security flag"},
		{"threshold ratio", domain.EngineConfig{Educational: domain.EducationalProfile{ObjectiveThreshold: 1.5}}, "objective_threshold"},
		{"comment ratio", domain.EngineConfig{Quality: domain.QualityProfile{MinCommentRatio: 2}}, "min_comment_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEngineConfig_ValidateZeroValue(t *testing.T) {
	assert.NoError(t, domain.EngineConfig{}.Validate())
}

func TestDuration_Text(t *testing.T) {
	var d domain.Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, domain.Duration(250*time.Millisecond), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "250ms", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
