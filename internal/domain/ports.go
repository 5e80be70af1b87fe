package domain

import (
	"context"
	"time"
)

// Checker is one analysis stage. Check must be a pure function of the
// script and the checker's own configuration. A returned error is an
// infrastructure failure, never a finding.
type Checker interface {
	Name() CheckerName
	// Applies reports whether the checker has what it needs to run for req.
	Applies(req ValidationRequest) bool
	Check(ctx context.Context, script *Script) (CheckerResult, error)
}

// ScriptParser turns Luau source into structural facts.
type ScriptParser interface {
	Parse(ctx context.Context, source string) (*ParsedScript, error)
}

// ScriptScanner finds Luau sources under a path.
type ScriptScanner interface {
	// Scan returns the script files at path, sorted. A file path is
	// returned as is; a directory is walked.
	Scan(path string) ([]string, error)
}

// ConfigLoader loads engine configuration from a directory.
type ConfigLoader interface {
	Load(dir string) (EngineConfig, error)
}

// RuleLoader loads the declarative rule catalogue.
type RuleLoader interface {
	Load(overridePath string) (*RuleSet, error)
}

// Observer receives lifecycle callbacks from the engine. Implementations
// must be safe for concurrent use.
type Observer interface {
	StartValidation(ctx context.Context, req ValidationRequest) (context.Context, func(*Report, error))
	StartChecker(ctx context.Context, name CheckerName) (context.Context, func(CheckerResult, time.Duration))
}

// ReportCache stores reports by content key.
type ReportCache interface {
	Load(key string) (*Report, error)
	Save(key string, report *Report) error
}

// RunHistory records one summary line per validation run.
type RunHistory interface {
	Save(dir string, entry HistoryEntry) error
	Load(dir string) ([]HistoryEntry, error)
}

// GitInfo resolves source control provenance for a path.
type GitInfo interface {
	CommitHash(path string) (string, error)
}

// HistoryEntry is one persisted run summary.
type HistoryEntry struct {
	Timestamp  string        `json:"timestamp"`
	ScriptName string        `json:"script_name"`
	Revision   string        `json:"revision,omitempty"`
	Status     OverallStatus `json:"status"`
	Score      float64       `json:"score"`
	Digest     string        `json:"digest"`
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) StartValidation(ctx context.Context, _ ValidationRequest) (context.Context, func(*Report, error)) {
	return ctx, func(*Report, error) {}
}

func (NopObserver) StartChecker(ctx context.Context, _ CheckerName) (context.Context, func(CheckerResult, time.Duration)) {
	return ctx, func(CheckerResult, time.Duration) {}
}
