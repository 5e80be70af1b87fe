package domain

import "math"

// CheckerName identifies one analysis stage.
type CheckerName string

const (
	CheckerSyntax      CheckerName = "syntax"
	CheckerSecurity    CheckerName = "security"
	CheckerQuality     CheckerName = "quality"
	CheckerCompliance  CheckerName = "compliance"
	CheckerEducational CheckerName = "educational"
)

// CheckerOrder is the fixed order in which results appear in a report.
var CheckerOrder = []CheckerName{
	CheckerSyntax,
	CheckerSecurity,
	CheckerQuality,
	CheckerCompliance,
	CheckerEducational,
}

// Severity ranks a finding. The zero value is not a valid severity.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities; higher is worse. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// MaxSeverity returns the worse of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Finding is one issue detected by a checker.
type Finding struct {
	RuleID      string      `json:"ruleId"`
	Checker     CheckerName `json:"checker"`
	Category    string      `json:"category"`
	Severity    Severity    `json:"severity"`
	Line        int         `json:"line,omitempty"`
	Column      int         `json:"column,omitempty"`
	EndLine     int         `json:"endLine,omitempty"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	CVSS        float64     `json:"cvss,omitempty"`
}

// CheckStatus is the per-checker outcome.
type CheckStatus string

const (
	CheckPass  CheckStatus = "pass"
	CheckWarn  CheckStatus = "warn"
	CheckFail  CheckStatus = "fail"
	CheckError CheckStatus = "error"
)

// SubMetric is one scored component of a checker result.
type SubMetric struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Points int    `json:"points"`
	Detail string `json:"detail,omitempty"`
}

// CheckerResult is the outcome of one checker for one request.
type CheckerResult struct {
	Checker    CheckerName        `json:"checker"`
	Status     CheckStatus        `json:"status"`
	Score      float64            `json:"score"`
	Label      string             `json:"label,omitempty"`
	Findings   []Finding          `json:"findings"`
	SubMetrics []SubMetric        `json:"subMetrics,omitempty"`
	Flags      map[string]bool    `json:"flags,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// HasCritical reports whether any finding in r is critical.
func (r CheckerResult) HasCritical() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// WorstSeverity returns the highest severity among r's findings, or "".
func (r CheckerResult) WorstSeverity() Severity {
	var worst Severity
	for _, f := range r.Findings {
		worst = MaxSeverity(worst, f.Severity)
	}
	return worst
}

// StatusFromFindings derives pass/warn/fail from a finding set.
func StatusFromFindings(findings []Finding) CheckStatus {
	status := CheckPass
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			return CheckFail
		case SeverityHigh, SeverityMedium:
			status = CheckWarn
		}
	}
	return status
}

// ErrorResult builds the result recorded for a checker that crashed,
// timed out or could not run on its input.
func ErrorResult(name CheckerName, err error) CheckerResult {
	msg := "checker failed"
	if err != nil {
		msg = err.Error()
	}
	return CheckerResult{
		Checker:  name,
		Status:   CheckError,
		Score:    0,
		Findings: []Finding{},
		Error:    msg,
	}
}

// ClampScore bounds s to [0,100].
func ClampScore(s float64) float64 {
	return math.Max(0, math.Min(100, s))
}

// RoundScore rounds to one decimal place.
func RoundScore(s float64) float64 {
	return math.Round(s*10) / 10
}
