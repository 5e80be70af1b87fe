package export

import (
	"fmt"

	"github.com/abdidvp/luaguard/internal/domain"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	toolName     = "luaguard"
	toolURI      = "https://github.com/abdidvp/luaguard"
)

// ToolVersion is stamped into SARIF output. The CLI sets it at startup.
var ToolVersion = "dev"

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string          `json:"id"`
	ShortDescription     sarifMessage    `json:"shortDescription"`
	Help                 *sarifMessage   `json:"help,omitempty"`
	DefaultConfiguration sarifRuleConfig `json:"defaultConfiguration"`
	Properties           sarifProperties `json:"properties"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags             []string `json:"tags,omitempty"`
	SecuritySeverity string   `json:"security-severity,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
}

// level maps a severity onto SARIF's three result levels.
func level(sev domain.Severity) string {
	switch sev {
	case domain.SeverityCritical, domain.SeverityHigh:
		return "error"
	case domain.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func newLog(reports []*domain.Report) sarifLog {
	driver := sarifDriver{
		Name:           toolName,
		Version:        ToolVersion,
		InformationURI: toolURI,
		Rules:          []sarifRule{},
	}
	ruleIndex := make(map[string]int)
	results := []sarifResult{}

	for _, report := range reports {
		uri := report.ScriptName
		if uri == "" {
			uri = "stdin"
		}
		for _, f := range report.Findings() {
			idx, ok := ruleIndex[f.RuleID]
			if !ok {
				idx = len(driver.Rules)
				ruleIndex[f.RuleID] = idx
				driver.Rules = append(driver.Rules, newRule(f))
			}

			loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: sarifArtifact{URI: uri}}}
			if f.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line, StartColumn: f.Column, EndLine: f.EndLine}
			}
			results = append(results, sarifResult{
				RuleID:    f.RuleID,
				RuleIndex: idx,
				Level:     level(f.Severity),
				Message:   sarifMessage{Text: f.Message},
				Locations: []sarifLocation{loc},
			})
		}
	}

	return sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs:    []sarifRun{{Tool: sarifTool{Driver: driver}, Results: results}},
	}
}

func newRule(f domain.Finding) sarifRule {
	rule := sarifRule{
		ID:                   f.RuleID,
		ShortDescription:     sarifMessage{Text: f.Message},
		DefaultConfiguration: sarifRuleConfig{Level: level(f.Severity)},
		Properties:           sarifProperties{Tags: []string{string(f.Checker), f.Category}},
	}
	if f.Remediation != "" {
		rule.Help = &sarifMessage{Text: f.Remediation}
	}
	if f.CVSS > 0 {
		rule.Properties.SecuritySeverity = fmt.Sprintf("%.1f", f.CVSS)
	}
	return rule
}
