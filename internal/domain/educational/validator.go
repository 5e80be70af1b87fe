// Package educational checks content appropriateness for a declared
// audience and estimates how well a script serves its learning goals.
package educational

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Component weights of the educational value score.
const (
	weightAlignment  = 0.4
	weightCoverage   = 0.4
	weightEngagement = 0.2
)

// contentPenalty is deducted per content finding below critical.
var contentPenalty = map[domain.Severity]float64{
	domain.SeverityHigh:   25,
	domain.SeverityMedium: 10,
	domain.SeverityLow:    5,
}

// Validator implements domain.Checker.
type Validator struct {
	rules   *domain.RuleSet
	profile domain.EducationalProfile
}

// New creates a Validator over a compiled rule set.
func New(rs *domain.RuleSet, profile domain.EducationalProfile) *Validator {
	return &Validator{rules: rs, profile: profile}
}

func (v *Validator) Name() domain.CheckerName { return domain.CheckerEducational }

// Applies requires audience metadata; without it the checker is skipped.
func (v *Validator) Applies(req domain.ValidationRequest) bool {
	return req.EffectiveType().Includes(domain.CheckerEducational) && req.HasAudience()
}

func (v *Validator) Check(ctx context.Context, s *domain.Script) (domain.CheckerResult, error) {
	if err := s.Usable(); err != nil {
		return domain.CheckerResult{}, err
	}
	req := s.Request
	grade := req.EffectiveGrade()

	findings, rating := v.scanContent(s, grade)
	if err := ctx.Err(); err != nil {
		return domain.CheckerResult{}, err
	}
	penalty, critical := 0.0, false
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			critical = true
		}
		penalty += contentPenalty[f.Severity]
	}

	bag := newWordBag(s)
	type component struct {
		name   string
		weight float64
		value  float64
		detail string
	}
	var components []component

	if req.Subject != "" {
		alignment, hits := v.alignment(bag, req.Subject)
		components = append(components, component{"subject_alignment", weightAlignment, alignment,
			fmt.Sprintf("%d %s terms (target %d)", hits, req.Subject, v.profile.SubjectTarget)})
		if alignment < 0.5 {
			findings = append(findings, domain.Finding{
				RuleID:      "EDU100",
				Category:    "subject_alignment",
				Severity:    domain.SeverityLow,
				Message:     fmt.Sprintf("script shows little %s vocabulary (%d terms)", req.Subject, hits),
				Remediation: "Name variables, functions and messages after the concepts being taught.",
			})
		}
	}

	if objectives := req.Objectives(); len(objectives) > 0 {
		addressed, total, missed := v.coverage(bag, objectives)
		if total > 0 {
			coverage := float64(addressed) / float64(total)
			components = append(components, component{"objective_coverage", weightCoverage, coverage,
				fmt.Sprintf("%d of %d objectives addressed", addressed, total)})
			for _, o := range missed {
				findings = append(findings, domain.Finding{
					RuleID:      "EDU101",
					Category:    "objective_coverage",
					Severity:    domain.SeverityLow,
					Message:     fmt.Sprintf("learning objective not evidenced: %q", o),
					Remediation: "Add code, messages or comments that exercise this objective.",
				})
			}
		}
	}

	hits := v.rules.EngagementHits(s.LineText(domain.TargetText))
	engagement := 1.0
	if target := v.profile.EngagementTarget; target > 0 {
		engagement = math.Min(1, float64(hits)/float64(target))
	}
	components = append(components, component{"engagement", weightEngagement, engagement,
		fmt.Sprintf("%d engagement signals", hits)})

	var weighted, weights float64
	subs := make([]domain.SubMetric, 0, len(components))
	for _, c := range components {
		weighted += c.weight * c.value
		weights += c.weight
		points := int(math.Round(c.weight * 100))
		subs = append(subs, domain.SubMetric{
			Name:   c.name,
			Points: points,
			Score:  int(math.Round(c.value * float64(points))),
			Detail: c.detail,
		})
	}
	score := 100*weighted/weights - penalty
	if critical {
		score = 0
	}

	domain.SortFindings(findings)
	if findings == nil {
		findings = []domain.Finding{}
	}

	metrics := map[string]float64{"engagement": domain.RoundScore(engagement)}
	for _, c := range components {
		metrics[c.name] = math.Round(c.value*100) / 100
	}

	return domain.CheckerResult{
		Checker:    domain.CheckerEducational,
		Status:     domain.StatusFromFindings(findings),
		Score:      domain.RoundScore(domain.ClampScore(score)),
		Label:      string(rating),
		Findings:   findings,
		SubMetrics: subs,
		Metrics:    metrics,
	}, nil
}

// scanContent matches every content rule. A match always raises the
// content rating; it is a finding only when the rule restricts grade.
func (v *Validator) scanContent(s *domain.Script, grade domain.GradeLevel) ([]domain.Finding, domain.ContentRating) {
	rating := domain.RatingAllAges
	var findings []domain.Finding
	for i := range v.rules.Content {
		r := &v.rules.Content[i]
		sev := r.SeverityFor(grade)
		for n, line := range s.LineText(r.Target) {
			col := r.Match(line)
			if col == 0 {
				continue
			}
			if r.Rating.Rank() > rating.Rank() {
				rating = r.Rating
			}
			if sev == "" {
				continue
			}
			findings = append(findings, domain.Finding{
				RuleID:      r.ID,
				Checker:     domain.CheckerEducational,
				Category:    r.Category,
				Severity:    sev,
				Line:        n + 1,
				Column:      col,
				Message:     fmt.Sprintf("%s is not appropriate for %s audiences", r.Message, strings.ReplaceAll(string(grade), "_", " ")),
				Remediation: r.Remediation,
			})
		}
	}
	return findings, rating
}

// alignment is distinct lexicon hits over SubjectTarget, capped at 1.
func (v *Validator) alignment(bag wordBag, subject domain.Subject) (float64, int) {
	hits := 0
	for _, w := range v.rules.Subjects[subject] {
		if bag.has(w) {
			hits++
		}
	}
	target := v.profile.SubjectTarget
	if target <= 0 {
		return 1, hits
	}
	return math.Min(1, float64(hits)/float64(target)), hits
}

// coverage counts objectives whose significant words appear in the bag at
// or above ObjectiveThreshold. Objectives without significant words are
// not counted.
func (v *Validator) coverage(bag wordBag, objectives []string) (addressed, total int, missed []string) {
	for _, o := range objectives {
		words := significantWords(o)
		if len(words) == 0 {
			continue
		}
		total++
		found := 0
		for _, w := range words {
			if bag.has(w) {
				found++
			}
		}
		if float64(found)/float64(len(words)) >= v.profile.ObjectiveThreshold {
			addressed++
		} else {
			missed = append(missed, o)
		}
	}
	return addressed, total, missed
}
