// Package compliance evaluates platform-policy predicates.
package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Checker implements domain.Checker.
type Checker struct {
	policies []domain.Policy
}

// New creates a Checker over the policy section of a compiled rule set.
func New(policies []domain.Policy) *Checker {
	return &Checker{policies: policies}
}

func (c *Checker) Name() domain.CheckerName { return domain.CheckerCompliance }

func (c *Checker) Applies(req domain.ValidationRequest) bool {
	return req.EffectiveType().Includes(domain.CheckerCompliance)
}

func (c *Checker) Check(ctx context.Context, s *domain.Script) (domain.CheckerResult, error) {
	if err := s.Usable(); err != nil {
		return domain.CheckerResult{}, err
	}

	findings := []domain.Finding{}
	flags := map[string]bool{
		string(domain.PolicyCommunity): true,
		string(domain.PolicySafety):    true,
		string(domain.PolicyTechnical): true,
	}
	type tally struct{ total, satisfied int }
	byCategory := make(map[domain.PolicyCategory]*tally)
	satisfied := 0

	for i := range c.policies {
		if err := ctx.Err(); err != nil {
			return domain.CheckerResult{}, err
		}
		p := &c.policies[i]
		violations := evaluate(s, p)
		t := byCategory[p.Category]
		if t == nil {
			t = &tally{}
			byCategory[p.Category] = t
		}
		t.total++
		if len(violations) == 0 {
			satisfied++
			t.satisfied++
			continue
		}
		flags[string(p.Category)] = false
		sev := severityFor(p.Category, s.Request.StrictMode)
		for _, v := range violations {
			v.RuleID = p.ID
			v.Checker = domain.CheckerCompliance
			v.Category = string(p.Category)
			v.Severity = sev
			v.Remediation = p.Remediation
			findings = append(findings, v)
		}
	}
	domain.SortFindings(findings)

	score := 100.0
	if len(c.policies) > 0 {
		score = domain.RoundScore(float64(satisfied) / float64(len(c.policies)) * 100)
	}

	var subs []domain.SubMetric
	for _, cat := range []domain.PolicyCategory{domain.PolicySafety, domain.PolicyCommunity, domain.PolicyTechnical} {
		t, ok := byCategory[cat]
		if !ok {
			continue
		}
		subs = append(subs, domain.SubMetric{
			Name:   string(cat),
			Points: t.total,
			Score:  t.satisfied,
			Detail: fmt.Sprintf("%d of %d predicates satisfied", t.satisfied, t.total),
		})
	}

	return domain.CheckerResult{
		Checker:    domain.CheckerCompliance,
		Status:     domain.StatusFromFindings(findings),
		Score:      score,
		Findings:   findings,
		SubMetrics: subs,
		Flags:      flags,
		Metrics: map[string]float64{
			"predicates": float64(len(c.policies)),
			"satisfied":  float64(satisfied),
		},
	}, nil
}

// severityFor escalates failed safety predicates to critical. Community
// standard failures are high in strict mode; everything else is medium.
func severityFor(cat domain.PolicyCategory, strict bool) domain.Severity {
	switch {
	case cat == domain.PolicySafety:
		return domain.SeverityCritical
	case cat == domain.PolicyCommunity && strict:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// evaluate returns one located finding per violation of p, or none when
// the predicate holds.
func evaluate(s *domain.Script, p *domain.Policy) []domain.Finding {
	switch p.Kind {
	case domain.PolicyForbid:
		var out []domain.Finding
		for n, line := range s.LineText(p.Target) {
			if col := p.Match(line); col > 0 {
				out = append(out, domain.Finding{Line: n + 1, Column: col, Message: p.Message})
			}
		}
		return out
	case domain.PolicyRequire:
		for _, line := range s.LineText(p.Target) {
			if p.Match(line) > 0 {
				return nil
			}
		}
		return []domain.Finding{{Message: p.Message}}
	case domain.PolicyMaxLines:
		if n := lineCount(s.Source()); n > p.Limit {
			return []domain.Finding{{Line: p.Limit + 1, Message: fmt.Sprintf("%s (%d lines)", p.Message, n)}}
		}
		return nil
	default:
		return nil
	}
}

// lineCount counts source lines, ignoring a trailing newline.
func lineCount(src string) int {
	src = strings.TrimSuffix(src, "\n")
	if src == "" {
		return 0
	}
	return strings.Count(src, "\n") + 1
}
