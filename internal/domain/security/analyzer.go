// Package security scans Luau source against the dangerous-pattern
// catalogue and derives a risk score, threat level and compliance flags.
package security

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Threat levels.
const (
	ThreatCritical = "critical"
	ThreatHigh     = "high"
	ThreatMedium   = "medium"
	ThreatLow      = "low"
)

// MaxRisk caps the aggregate risk score.
const MaxRisk = 10.0

// Analyzer implements domain.Checker.
type Analyzer struct {
	rules  []domain.PatternRule
	guards []domain.GuardRule
	// flags maps a rule id to the compliance flag a match clears.
	flags map[string]string
}

// New creates an Analyzer over the security and guard sections of a
// compiled rule set.
func New(rs *domain.RuleSet) *Analyzer {
	a := &Analyzer{rules: rs.Security, guards: rs.Guards, flags: make(map[string]string)}
	for _, r := range rs.Security {
		if r.Flag != "" {
			a.flags[r.ID] = r.Flag
		}
	}
	for _, g := range rs.Guards {
		if g.Flag != "" {
			a.flags[g.ID] = g.Flag
		}
	}
	return a
}

func (a *Analyzer) Name() domain.CheckerName { return domain.CheckerSecurity }

func (a *Analyzer) Applies(req domain.ValidationRequest) bool {
	return req.EffectiveType().Includes(domain.CheckerSecurity)
}

func (a *Analyzer) Check(ctx context.Context, s *domain.Script) (domain.CheckerResult, error) {
	if err := s.Usable(); err != nil {
		return domain.CheckerResult{}, err
	}

	findings := domain.ScanRules(s, domain.CheckerSecurity, a.rules)
	if err := ctx.Err(); err != nil {
		return domain.CheckerResult{}, err
	}
	findings = append(findings, a.scanGuards(s)...)

	if s.Request.StrictMode {
		for i := range findings {
			if findings[i].Severity == domain.SeverityHigh {
				findings[i].Severity = domain.SeverityCritical
			}
		}
	}
	domain.SortFindings(findings)

	flags := make(map[string]bool, len(domain.SecurityFlags))
	for _, f := range domain.SecurityFlags {
		flags[f] = true
	}
	for _, f := range findings {
		if flag, ok := a.flags[f.RuleID]; ok {
			flags[flag] = false
		}
	}

	risk := RiskScore(findings)
	return domain.CheckerResult{
		Checker:  domain.CheckerSecurity,
		Status:   domain.StatusFromFindings(findings),
		Score:    domain.RoundScore(domain.ClampScore(100 - 10*risk)),
		Label:    ThreatLevel(risk),
		Findings: findings,
		Flags:    flags,
		Metrics: map[string]float64{
			"risk_score": risk,
			"matches":    float64(len(findings)),
		},
	}, nil
}

// scanGuards reports each trigger line of a guard whose evidence appears
// nowhere in the script.
func (a *Analyzer) scanGuards(s *domain.Script) []domain.Finding {
	var findings []domain.Finding
	for i := range a.guards {
		g := &a.guards[i]
		lines := s.LineText(g.Target)
		if g.HasEvidence(lines) {
			continue
		}
		for n, line := range lines {
			col := g.TriggerColumn(line)
			if col == 0 {
				continue
			}
			findings = append(findings, domain.Finding{
				RuleID:      g.ID,
				Checker:     domain.CheckerSecurity,
				Category:    g.Category,
				Severity:    g.Severity,
				Line:        n + 1,
				Column:      col,
				Message:     g.Message,
				Remediation: g.Remediation,
				CVSS:        g.CVSS,
			})
		}
	}
	return findings
}

// RiskScore combines finding scores. When several findings share a line
// only the highest counts. The top score counts in full and every other
// adds a tenth of its value; the total is capped at MaxRisk.
func RiskScore(findings []domain.Finding) float64 {
	perLine := make(map[int]float64)
	for _, f := range findings {
		perLine[f.Line] = math.Max(perLine[f.Line], f.CVSS)
	}
	scores := make([]float64, 0, len(perLine))
	for _, s := range perLine {
		if s > 0 {
			scores = append(scores, s)
		}
	}
	if len(scores) == 0 {
		return 0
	}
	slices.SortFunc(scores, func(a, b float64) int { return cmp.Compare(b, a) })

	risk := scores[0]
	for _, s := range scores[1:] {
		risk += 0.1 * s
	}
	return domain.RoundScore(math.Min(risk, MaxRisk))
}

// ThreatLevel maps a risk score to its tier.
func ThreatLevel(risk float64) string {
	switch {
	case risk >= 9:
		return ThreatCritical
	case risk >= 7:
		return ThreatHigh
	case risk >= 4:
		return ThreatMedium
	default:
		return ThreatLow
	}
}
