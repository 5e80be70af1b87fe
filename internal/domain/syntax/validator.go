// Package syntax reports parse errors, unsupported constructs and static
// performance smells in Luau source.
package syntax

import (
	"context"
	"fmt"

	"github.com/abdidvp/luaguard/internal/domain"
)

const (
	ruleNoContent  = "SYN000"
	ruleParseError = "SYN001"
)

// severityPenalty is deducted from 100 per non-critical finding.
var severityPenalty = map[domain.Severity]float64{
	domain.SeverityHigh:   20,
	domain.SeverityMedium: 10,
	domain.SeverityLow:    5,
}

// Validator implements domain.Checker. It is the one checker that accepts
// unparseable input: it reports the failure instead of refusing to run.
type Validator struct {
	rules []domain.PatternRule
}

// New creates a Validator over the syntax section of a compiled rule set.
func New(rules []domain.PatternRule) *Validator {
	return &Validator{rules: rules}
}

func (v *Validator) Name() domain.CheckerName { return domain.CheckerSyntax }

func (v *Validator) Applies(req domain.ValidationRequest) bool {
	return req.EffectiveType().Includes(domain.CheckerSyntax)
}

func (v *Validator) Check(ctx context.Context, s *domain.Script) (domain.CheckerResult, error) {
	if s.ParseErr != nil {
		return domain.CheckerResult{}, fmt.Errorf("parsing script: %w", s.ParseErr)
	}
	if err := ctx.Err(); err != nil {
		return domain.CheckerResult{}, err
	}

	result := domain.CheckerResult{
		Checker:  domain.CheckerSyntax,
		Findings: []domain.Finding{},
		Metrics:  metrics(s.Parsed),
	}

	parsed := s.Parsed
	switch {
	case parsed != nil && len(parsed.Errors) > 0:
		e := parsed.Errors[0]
		result.Findings = append(result.Findings, domain.Finding{
			RuleID:      ruleParseError,
			Checker:     domain.CheckerSyntax,
			Category:    "parse_error",
			Severity:    domain.SeverityCritical,
			Line:        e.Line,
			Column:      e.Column,
			Message:     fmt.Sprintf("syntax error: %s", e.Message),
			Remediation: "Fix the syntax error; no other check can be trusted until the script parses.",
		})
	case parsed == nil || len(parsed.Tokens) == 0:
		result.Findings = append(result.Findings, domain.Finding{
			RuleID:      ruleNoContent,
			Checker:     domain.CheckerSyntax,
			Category:    "empty_script",
			Severity:    domain.SeverityCritical,
			Message:     "no executable content",
			Remediation: "Submit a script that contains Luau statements.",
		})
	default:
		result.Findings = append(result.Findings, domain.ScanRules(s, domain.CheckerSyntax, v.rules)...)
	}

	domain.SortFindings(result.Findings)
	result.Status = domain.StatusFromFindings(result.Findings)
	result.Score = score(result.Findings)
	return result, nil
}

// score is 0 with any critical finding, otherwise 100 minus penalties.
func score(findings []domain.Finding) float64 {
	s := 100.0
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			return 0
		}
		s -= severityPenalty[f.Severity]
	}
	return domain.ClampScore(s)
}

func metrics(p *domain.ParsedScript) map[string]float64 {
	if p == nil {
		return map[string]float64{}
	}
	return map[string]float64{
		"lines":      float64(len(p.Lines)),
		"code_lines": float64(p.CodeLineN),
		"functions":  float64(len(p.Functions)),
		"loops":      float64(len(p.Loops)),
	}
}
