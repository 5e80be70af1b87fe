// Package quality scores Luau source on complexity, structure, naming and
// documentation, and maps the total to a five-tier label.
package quality

import (
	"context"
	"fmt"
	"math"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Quality tiers.
const (
	TierExcellent    = "EXCELLENT"
	TierGood         = "GOOD"
	TierFair         = "FAIR"
	TierPoor         = "POOR"
	TierUnacceptable = "UNACCEPTABLE"
)

// Tier maps a 0-100 score to its label.
func Tier(score float64) string {
	switch {
	case score >= 90:
		return TierExcellent
	case score >= 75:
		return TierGood
	case score >= 60:
		return TierFair
	case score >= 40:
		return TierPoor
	default:
		return TierUnacceptable
	}
}

// Checker implements domain.Checker.
type Checker struct {
	profile domain.QualityProfile
}

// New creates a Checker with the given thresholds.
func New(profile domain.QualityProfile) *Checker {
	return &Checker{profile: profile}
}

func (c *Checker) Name() domain.CheckerName { return domain.CheckerQuality }

func (c *Checker) Applies(req domain.ValidationRequest) bool {
	return req.EffectiveType().Includes(domain.CheckerQuality)
}

func (c *Checker) Check(ctx context.Context, s *domain.Script) (domain.CheckerResult, error) {
	if err := s.Usable(); err != nil {
		return domain.CheckerResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.CheckerResult{}, err
	}
	p := s.Parsed

	var findings []domain.Finding
	sm1, f1 := c.scoreComplexity(p)
	sm2, f2 := c.scoreStructure(p)
	sm3, f3 := c.scoreNaming(p)
	sm4, f4 := c.scoreDocumentation(p)
	findings = append(findings, f1...)
	findings = append(findings, f2...)
	findings = append(findings, f3...)
	findings = append(findings, f4...)
	for i := range findings {
		findings[i].Checker = domain.CheckerQuality
		findings[i].Severity = clampSeverity(findings[i].Severity)
	}
	domain.SortFindings(findings)
	if findings == nil {
		findings = []domain.Finding{}
	}

	subs := []domain.SubMetric{sm1, sm2, sm3, sm4}
	total := 0
	for _, sm := range subs {
		total += sm.Score
	}
	score := float64(total)

	status := domain.StatusFromFindings(findings)
	if status == domain.CheckFail {
		status = domain.CheckWarn
	}

	maxComplexity, sumComplexity := 0, 0
	for _, fn := range p.Functions {
		maxComplexity = max(maxComplexity, fn.Complexity)
		sumComplexity += fn.Complexity
	}
	avgComplexity := 0.0
	if len(p.Functions) > 0 {
		avgComplexity = domain.RoundScore(float64(sumComplexity) / float64(len(p.Functions)))
	}

	return domain.CheckerResult{
		Checker:    domain.CheckerQuality,
		Status:     status,
		Score:      score,
		Label:      Tier(score),
		Findings:   findings,
		SubMetrics: subs,
		Metrics: map[string]float64{
			"functions":      float64(len(p.Functions)),
			"max_complexity": float64(maxComplexity),
			"avg_complexity": avgComplexity,
			"comment_ratio":  commentRatio(p),
		},
	}, nil
}

// scoreComplexity (30 pts): average decayed credit of per-function
// cyclomatic complexity against MaxComplexity.
func (c *Checker) scoreComplexity(p *domain.ParsedScript) (domain.SubMetric, []domain.Finding) {
	sm := domain.SubMetric{Name: "complexity", Points: 30}
	limit := c.profile.MaxComplexity
	if len(p.Functions) == 0 {
		sm.Score = sm.Points
		sm.Detail = "no functions found"
		return sm, nil
	}

	var findings []domain.Finding
	earned := 0.0
	for _, fn := range p.Functions {
		earned += overrunCredit(fn.Complexity, limit)
		if fn.Complexity > limit {
			findings = append(findings, domain.Finding{
				RuleID:      "QUA001",
				Category:    "complexity",
				Severity:    overrunSeverity(fn.Complexity, limit),
				Line:        fn.LineStart,
				EndLine:     fn.LineEnd,
				Message:     fmt.Sprintf("function %s has cyclomatic complexity %d (max %d)", fn.Name, fn.Complexity, limit),
				Remediation: "Split the function or replace branches with a lookup table.",
			})
		}
	}
	ratio := earned / float64(len(p.Functions))
	sm.Score = int(math.Round(ratio * float64(sm.Points)))
	sm.Detail = fmt.Sprintf("%.0f%% complexity credit over %d functions (max %d)", ratio*100, len(p.Functions), limit)
	return sm, findings
}

// scoreStructure (20 pts): function length, parameter count and nesting
// depth, each decayed against its threshold and averaged.
func (c *Checker) scoreStructure(p *domain.ParsedScript) (domain.SubMetric, []domain.Finding) {
	sm := domain.SubMetric{Name: "structure", Points: 20}
	if len(p.Functions) == 0 {
		sm.Score = sm.Points
		sm.Detail = "no functions found"
		return sm, nil
	}
	prof := c.profile

	var findings []domain.Finding
	earned := 0.0
	for _, fn := range p.Functions {
		lines, params := fn.Lines(), len(fn.Params)
		earned += (overrunCredit(lines, prof.MaxFunctionLines) +
			overrunCredit(params, prof.MaxParams) +
			overrunCredit(fn.MaxNesting, prof.MaxNesting)) / 3

		if lines > prof.MaxFunctionLines {
			findings = append(findings, domain.Finding{
				RuleID:      "QUA002",
				Category:    "function_size",
				Severity:    overrunSeverity(lines, prof.MaxFunctionLines),
				Line:        fn.LineStart,
				EndLine:     fn.LineEnd,
				Message:     fmt.Sprintf("function %s is %d lines (max %d)", fn.Name, lines, prof.MaxFunctionLines),
				Remediation: "Extract helpers so each function does one thing.",
			})
		}
		if params > prof.MaxParams {
			findings = append(findings, domain.Finding{
				RuleID:      "QUA003",
				Category:    "parameters",
				Severity:    overrunSeverity(params, prof.MaxParams),
				Line:        fn.LineStart,
				Message:     fmt.Sprintf("function %s takes %d parameters (max %d)", fn.Name, params, prof.MaxParams),
				Remediation: "Pass a table of options instead of many positional arguments.",
			})
		}
		if fn.MaxNesting > prof.MaxNesting {
			findings = append(findings, domain.Finding{
				RuleID:      "QUA004",
				Category:    "nesting",
				Severity:    overrunSeverity(fn.MaxNesting, prof.MaxNesting),
				Line:        fn.LineStart,
				EndLine:     fn.LineEnd,
				Message:     fmt.Sprintf("function %s nests blocks %d deep (max %d)", fn.Name, fn.MaxNesting, prof.MaxNesting),
				Remediation: "Return early or extract the inner blocks.",
			})
		}
	}
	ratio := earned / float64(len(p.Functions))
	sm.Score = int(math.Round(ratio * float64(sm.Points)))
	sm.Detail = fmt.Sprintf("%.0f%% structure credit over %d functions", ratio*100, len(p.Functions))
	return sm, findings
}

// scoreNaming (25 pts): share of declared names that follow Luau naming
// conventions.
func (c *Checker) scoreNaming(p *domain.ParsedScript) (domain.SubMetric, []domain.Finding) {
	sm := domain.SubMetric{Name: "naming", Points: 25}
	if len(p.Identifiers) == 0 {
		sm.Score = sm.Points
		sm.Detail = "no declared names"
		return sm, nil
	}

	type key struct {
		name string
		line int
	}
	seen := make(map[key]bool)
	var findings []domain.Finding
	total, good := 0, 0
	for _, id := range p.Identifiers {
		k := key{id.Name, id.Line}
		if seen[k] {
			continue
		}
		seen[k] = true
		total++

		problem := NamingProblem(id.Name)
		if problem == "" {
			good++
			continue
		}
		findings = append(findings, domain.Finding{
			RuleID:      "QUA010",
			Category:    "naming",
			Severity:    domain.SeverityLow,
			Line:        id.Line,
			Column:      id.Column,
			Message:     fmt.Sprintf("%s %q: %s", id.Kind, id.Name, problem),
			Remediation: "Use descriptive camelCase names, PascalCase for modules and UPPER_SNAKE_CASE for constants.",
		})
	}
	ratio := float64(good) / float64(total)
	sm.Score = int(math.Round(ratio * float64(sm.Points)))
	sm.Detail = fmt.Sprintf("%d of %d names follow conventions", good, total)
	return sm, findings
}

// scoreDocumentation (25 pts): half comment density against
// MinCommentRatio, half doc-comment coverage of named functions.
func (c *Checker) scoreDocumentation(p *domain.ParsedScript) (domain.SubMetric, []domain.Finding) {
	sm := domain.SubMetric{Name: "documentation", Points: 25}
	var findings []domain.Finding

	ratio := commentRatio(p)
	densityCredit := 1.0
	if target := c.profile.MinCommentRatio; target > 0 {
		densityCredit = math.Min(1, ratio/target)
		if ratio < target {
			findings = append(findings, domain.Finding{
				RuleID:      "QUA020",
				Category:    "documentation",
				Severity:    domain.SeverityLow,
				Message:     fmt.Sprintf("comment density %.0f%% is below %.0f%%", ratio*100, target*100),
				Remediation: "Explain intent and non-obvious behavior in comments.",
			})
		}
	}

	named, documented := 0, 0
	for _, fn := range p.Functions {
		if fn.Name == "<anonymous>" {
			continue
		}
		named++
		if fn.HasDocComment {
			documented++
			continue
		}
		findings = append(findings, domain.Finding{
			RuleID:      "QUA021",
			Category:    "documentation",
			Severity:    domain.SeverityLow,
			Line:        fn.LineStart,
			Message:     fmt.Sprintf("function %s has no doc comment", fn.Name),
			Remediation: "Add a comment above the function describing what it does.",
		})
	}
	coverage := 1.0
	if named > 0 {
		coverage = float64(documented) / float64(named)
	}

	sm.Score = int(math.Round((densityCredit*0.5 + coverage*0.5) * float64(sm.Points)))
	sm.Detail = fmt.Sprintf("%.0f%% comment lines, %d of %d functions documented", ratio*100, documented, named)
	return sm, findings
}

// commentRatio is comment lines per code line, rounded to two decimals.
func commentRatio(p *domain.ParsedScript) float64 {
	if p.CodeLineN == 0 {
		return 0
	}
	return math.Round(float64(p.CommentLines)/float64(p.CodeLineN)*100) / 100
}
