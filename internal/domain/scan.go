package domain

import (
	"cmp"
	"slices"
)

// ScanRules applies pattern rules to a script. Every matching line yields
// one finding; overlapping rules are all reported.
func ScanRules(s *Script, checker CheckerName, rules []PatternRule) []Finding {
	var findings []Finding
	for i := range rules {
		r := &rules[i]
		lines := s.LineText(r.Target)
		switch r.Scope {
		case "loop":
			for _, ln := range loopBodyLines(s) {
				if ln-1 >= len(lines) {
					continue
				}
				if col := r.Match(lines[ln-1]); col > 0 {
					findings = append(findings, r.finding(checker, ln, col, 0))
				}
			}
		case "loop_header":
			if s.Parsed == nil {
				continue
			}
			for _, loop := range s.Parsed.Loops {
				if loop.LineStart-1 >= len(lines) {
					continue
				}
				col := r.Match(lines[loop.LineStart-1])
				if col == 0 {
					continue
				}
				end := min(loop.LineEnd, len(lines))
				if r.BodyMatches(lines[loop.LineStart-1 : end]) {
					continue
				}
				findings = append(findings, r.finding(checker, loop.LineStart, col, loop.LineEnd))
			}
		default:
			for n, line := range lines {
				if col := r.Match(line); col > 0 {
					findings = append(findings, r.finding(checker, n+1, col, 0))
				}
			}
		}
	}
	return findings
}

func (r *PatternRule) finding(checker CheckerName, line, col, endLine int) Finding {
	return Finding{
		RuleID:      r.ID,
		Checker:     checker,
		Category:    r.Category,
		Severity:    r.Severity,
		Line:        line,
		Column:      col,
		EndLine:     endLine,
		Message:     r.Message,
		Remediation: r.Remediation,
		CVSS:        r.CVSS,
	}
}

// loopBodyLines returns the distinct line numbers inside any loop body, in
// ascending order. A single-line loop counts as its own body.
func loopBodyLines(s *Script) []int {
	if s.Parsed == nil {
		return nil
	}
	seen := make(map[int]bool)
	for _, l := range s.Parsed.Loops {
		if l.LineStart == l.LineEnd {
			seen[l.LineStart] = true
			continue
		}
		for ln := l.LineStart + 1; ln < l.LineEnd; ln++ {
			seen[ln] = true
		}
	}
	out := make([]int, 0, len(seen))
	for ln := range seen {
		out = append(out, ln)
	}
	slices.Sort(out)
	return out
}

// SortFindings orders findings by line, column and rule id.
func SortFindings(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.RuleID, b.RuleID),
		)
	})
}
