package application

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/abdidvp/luaguard/internal/domain"
)

// BuildReport aggregates checker results into a report. results must hold
// exactly the checkers that ran for req; skipped checkers are absent and
// excluded from the weighted score. The returned report is complete and
// must not be modified.
func BuildReport(req domain.ValidationRequest, results []domain.CheckerResult, cfg domain.EngineConfig) (*domain.Report, error) {
	ordered := make([]domain.CheckerResult, len(results))
	copy(ordered, results)
	slices.SortStableFunc(ordered, func(a, b domain.CheckerResult) int {
		return cmp.Compare(slices.Index(domain.CheckerOrder, a.Checker), slices.Index(domain.CheckerOrder, b.Checker))
	})
	for i := range ordered {
		ordered[i].Findings = finalizeFindings(ordered[i].Findings, req.IncludeSuggestions)
	}

	report := &domain.Report{
		RequestID:       req.ID,
		ScriptName:      req.ScriptName,
		ValidationType:  req.EffectiveType(),
		Revision:        req.Revision,
		Scores:          make(map[domain.CheckerName]float64, len(ordered)),
		Results:         ordered,
		CriticalIssues:  []string{},
		Warnings:        []string{},
		Recommendations: []string{},
	}

	// 1. Weighted score over active checkers
	var weighted, weights float64
	for _, r := range ordered {
		report.Scores[r.Checker] = r.Score
		w := cfg.Weight(r.Checker)
		weighted += w * r.Score
		weights += w
	}
	if weights > 0 {
		report.OverallScore = domain.RoundScore(domain.ClampScore(weighted / weights))
	}

	// 2. Status: critical findings beat checker errors beat warnings
	report.OverallStatus = overallStatus(ordered)

	// 3. Summaries
	for _, r := range ordered {
		if r.Status == domain.CheckError {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s checker did not complete: %s", r.Checker, r.Error))
		}
		for _, f := range r.Findings {
			switch f.Severity {
			case domain.SeverityCritical:
				report.CriticalIssues = append(report.CriticalIssues, describe(f))
			case domain.SeverityHigh, domain.SeverityMedium:
				report.Warnings = append(report.Warnings, describe(f))
			}
		}
	}
	if req.IncludeSuggestions {
		report.Recommendations = recommendations(ordered)
	}

	// 4. Readiness and labels
	applyReadiness(report, cfg)

	digest, err := digestJSON(report)
	if err != nil {
		return nil, fmt.Errorf("computing report digest: %w", err)
	}
	report.Digest = digest
	return report, nil
}

func overallStatus(results []domain.CheckerResult) domain.OverallStatus {
	var errored, warned bool
	for _, r := range results {
		if r.HasCritical() {
			return domain.StatusFailed
		}
		if r.Status == domain.CheckError {
			errored = true
		}
		if sev := r.WorstSeverity(); sev == domain.SeverityHigh || sev == domain.SeverityMedium {
			warned = true
		}
	}
	switch {
	case errored:
		return domain.StatusError
	case warned:
		return domain.StatusPassedWithWarnings
	default:
		return domain.StatusPassed
	}
}

func applyReadiness(report *domain.Report, cfg domain.EngineConfig) {
	anyCritical := len(report.CriticalIssues) > 0

	if syn, ok := report.Result(domain.CheckerSyntax); ok {
		report.DeploymentReady = !anyCritical && syn.Status != domain.CheckFail && syn.Status != domain.CheckError
	}

	if edu, ok := report.Result(domain.CheckerEducational); ok {
		report.EducationalReady = edu.Status != domain.CheckError && !edu.HasCritical()
		report.ContentRating = edu.Label
	}

	if comp, ok := report.Result(domain.CheckerCompliance); ok {
		compliant := comp.Status != domain.CheckError && !comp.HasCritical()
		if sec, ok := report.Result(domain.CheckerSecurity); ok && sec.Status != domain.CheckError {
			for _, flag := range requiredFlags(cfg) {
				if !sec.Flags[flag] {
					compliant = false
				}
			}
		}
		report.PlatformCompliant = compliant
	}

	if sec, ok := report.Result(domain.CheckerSecurity); ok {
		report.ThreatLevel = sec.Label
	}
	if q, ok := report.Result(domain.CheckerQuality); ok {
		report.QualityTier = q.Label
	}
}

func requiredFlags(cfg domain.EngineConfig) []string {
	if cfg.RequiredSecurityFlags == nil {
		return domain.DefaultConfig().RequiredSecurityFlags
	}
	return cfg.RequiredSecurityFlags
}

// finalizeFindings returns a never-nil copy of findings, dropping
// remediation text when suggestions were not requested.
func finalizeFindings(findings []domain.Finding, suggestions bool) []domain.Finding {
	out := make([]domain.Finding, len(findings))
	copy(out, findings)
	if !suggestions {
		for i := range out {
			out[i].Remediation = ""
		}
	}
	return out
}

func describe(f domain.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("[%s] %s line %d: %s", f.Checker, f.RuleID, f.Line, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Checker, f.RuleID, f.Message)
}

// recommendations lists distinct remediation texts, worst severity first.
func recommendations(results []domain.CheckerResult) []string {
	type rec struct {
		text string
		rank int
		pos  int
	}
	seen := make(map[string]int)
	var recs []rec
	for _, r := range results {
		for _, f := range r.Findings {
			if f.Remediation == "" {
				continue
			}
			if i, ok := seen[f.Remediation]; ok {
				recs[i].rank = max(recs[i].rank, f.Severity.Rank())
				continue
			}
			seen[f.Remediation] = len(recs)
			recs = append(recs, rec{f.Remediation, f.Severity.Rank(), len(recs)})
		}
	}
	slices.SortStableFunc(recs, func(a, b rec) int {
		return cmp.Or(cmp.Compare(b.rank, a.rank), cmp.Compare(a.pos, b.pos))
	})
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.text
	}
	return out
}
