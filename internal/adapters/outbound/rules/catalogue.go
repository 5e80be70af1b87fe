package rules

import (
	"strings"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Entry is the listing form of one catalogue rule.
type Entry struct {
	ID       string `json:"id"`
	Section  string `json:"section"`
	Category string `json:"category"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

// Catalogue flattens rs into entries, section by section in checker order.
// Content rules list their per-grade severities; policies have none because
// the compliance checker derives severity from the category.
func Catalogue(rs *domain.RuleSet) []Entry {
	var out []Entry
	for _, r := range rs.Syntax {
		out = append(out, Entry{ID: r.ID, Section: "syntax", Category: r.Category, Severity: string(r.Severity), Message: r.Message})
	}
	for _, r := range rs.Security {
		out = append(out, Entry{ID: r.ID, Section: "security", Category: r.Category, Severity: string(r.Severity), Message: r.Message})
	}
	for _, g := range rs.Guards {
		out = append(out, Entry{ID: g.ID, Section: "guards", Category: g.Category, Severity: string(g.Severity), Message: g.Message})
	}
	for _, c := range rs.Content {
		out = append(out, Entry{ID: c.ID, Section: "content", Category: c.Category, Severity: gradeSeverities(c), Message: c.Message})
	}
	for _, p := range rs.Policies {
		out = append(out, Entry{ID: p.ID, Section: "policies", Category: string(p.Category), Message: p.Description})
	}
	return out
}

func gradeSeverities(c domain.ContentRule) string {
	var parts []string
	for _, g := range domain.GradeLevels {
		if sev := c.SeverityFor(g); sev != "" {
			parts = append(parts, string(g)+"="+string(sev))
		}
	}
	return strings.Join(parts, ",")
}
