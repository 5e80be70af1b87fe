package domain

// OverallStatus is the terminal status of one validation.
type OverallStatus string

const (
	StatusPassed             OverallStatus = "PASSED"
	StatusPassedWithWarnings OverallStatus = "PASSED_WITH_WARNINGS"
	StatusFailed             OverallStatus = "FAILED"
	StatusError              OverallStatus = "ERROR"
)

// Report is the comprehensive result of one validation. It is assembled
// once by the report builder and must not be modified afterwards; a new
// validation produces a new report.
type Report struct {
	RequestID         string                  `json:"requestId"`
	ScriptName        string                  `json:"scriptName"`
	ValidationType    ValidationType          `json:"validationType"`
	Revision          string                  `json:"revision,omitempty"`
	OverallStatus     OverallStatus           `json:"overallStatus"`
	OverallScore      float64                 `json:"overallScore"`
	Scores            map[CheckerName]float64 `json:"scores"`
	Results           []CheckerResult         `json:"results"`
	CriticalIssues    []string                `json:"criticalIssues"`
	Warnings          []string                `json:"warnings"`
	Recommendations   []string                `json:"recommendations"`
	DeploymentReady   bool                    `json:"deploymentReady"`
	EducationalReady  bool                    `json:"educationalReady"`
	PlatformCompliant bool                    `json:"platformCompliant"`
	ThreatLevel       string                  `json:"threatLevel,omitempty"`
	QualityTier       string                  `json:"qualityTier,omitempty"`
	ContentRating     string                  `json:"contentRating,omitempty"`
	Digest            string                  `json:"digest"`
}

// Result returns the result for a checker and whether it ran.
func (r *Report) Result(name CheckerName) (CheckerResult, bool) {
	for _, res := range r.Results {
		if res.Checker == name {
			return res, true
		}
	}
	return CheckerResult{}, false
}

// Findings returns every finding in checker order.
func (r *Report) Findings() []Finding {
	var out []Finding
	for _, res := range r.Results {
		out = append(out, res.Findings...)
	}
	return out
}

// BatchItem is one entry of a batch, in input order.
type BatchItem struct {
	Index      int           `json:"index"`
	RequestID  string        `json:"requestId,omitempty"`
	ScriptName string        `json:"scriptName"`
	Status     OverallStatus `json:"status"`
	Report     *Report       `json:"report,omitempty"`
	Error      *ItemError    `json:"error,omitempty"`
}

// ItemError describes why a batch item produced no report.
type ItemError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
}

// RejectedInput is a batch entry that never became a request, such as an
// element that fails the request schema.
type RejectedInput struct {
	Index      int
	ScriptName string
	Err        error
}

// BatchStats aggregates a batch.
type BatchStats struct {
	Total        int     `json:"total"`
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`
	Errored      int     `json:"errored"`
	AverageScore float64 `json:"averageScore"`
}

// BatchResult owns the reports of one batch.
type BatchResult struct {
	Items []BatchItem `json:"items"`
	Stats BatchStats  `json:"stats"`
}

// ComputeStats fills in aggregate statistics from items.
func ComputeStats(items []BatchItem) BatchStats {
	stats := BatchStats{Total: len(items)}
	var sum float64
	var scored int
	for _, it := range items {
		switch it.Status {
		case StatusPassed, StatusPassedWithWarnings:
			stats.Passed++
		case StatusFailed:
			stats.Failed++
		default:
			stats.Errored++
		}
		if it.Report != nil {
			sum += it.Report.OverallScore
			scored++
		}
	}
	if scored > 0 {
		stats.AverageScore = RoundScore(sum / float64(scored))
	}
	return stats
}
