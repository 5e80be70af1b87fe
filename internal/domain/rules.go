package domain

import (
	"fmt"
	"regexp"
)

// RuleTarget selects which view of the source a pattern is matched against.
type RuleTarget string

const (
	// TargetCode matches code with comments removed and strings blanked.
	TargetCode RuleTarget = "code"
	// TargetText matches code with comments removed and strings intact.
	TargetText RuleTarget = "text"
	// TargetRaw matches the untouched source lines.
	TargetRaw RuleTarget = "raw"
)

// PatternRule is one line-oriented regex rule.
type PatternRule struct {
	ID          string     `yaml:"id"           json:"id"`
	Category    string     `yaml:"category"     json:"category"`
	Pattern     string     `yaml:"pattern"      json:"pattern"`
	Except      string     `yaml:"except"       json:"except,omitempty"`
	Target      RuleTarget `yaml:"target"       json:"target,omitempty"`
	Severity    Severity   `yaml:"severity"     json:"severity"`
	CVSS        float64    `yaml:"cvss"         json:"cvss,omitempty"`
	Message     string     `yaml:"message"      json:"message"`
	Remediation string     `yaml:"remediation"  json:"remediation,omitempty"`
	// Flag names the compliance flag a match clears.
	Flag string `yaml:"flag" json:"flag,omitempty"`
	// Scope "loop" restricts matches to loop bodies; "loop_header" to the
	// first line of a loop.
	Scope string `yaml:"scope" json:"scope,omitempty"`
	// AbsentInBody makes a loop_header rule fire only when the loop body
	// never matches this pattern.
	AbsentInBody string `yaml:"absent_in_body" json:"absent_in_body,omitempty"`

	re     *regexp.Regexp
	except *regexp.Regexp
	absent *regexp.Regexp
}

// Match returns the 1-based column of the first non-excepted match in line,
// or 0 when the rule does not match.
func (r *PatternRule) Match(line string) int {
	return matchColumn(r.re, r.except, line)
}

// BodyMatches reports whether the AbsentInBody pattern matches any line.
func (r *PatternRule) BodyMatches(lines []string) bool {
	if r.absent == nil {
		return false
	}
	for _, l := range lines {
		if r.absent.MatchString(l) {
			return true
		}
	}
	return false
}

// GuardRule fires when Trigger matches and Evidence matches nowhere in the
// script.
type GuardRule struct {
	ID          string     `yaml:"id"          json:"id"`
	Category    string     `yaml:"category"    json:"category"`
	Trigger     string     `yaml:"trigger"     json:"trigger"`
	Evidence    string     `yaml:"evidence"    json:"evidence"`
	Target      RuleTarget `yaml:"target"      json:"target,omitempty"`
	Severity    Severity   `yaml:"severity"    json:"severity"`
	CVSS        float64    `yaml:"cvss"        json:"cvss,omitempty"`
	Message     string     `yaml:"message"     json:"message"`
	Remediation string     `yaml:"remediation" json:"remediation,omitempty"`
	Flag        string     `yaml:"flag"        json:"flag,omitempty"`

	trigger  *regexp.Regexp
	evidence *regexp.Regexp
}

// TriggerColumn returns the 1-based column of the trigger in line, or 0.
func (g *GuardRule) TriggerColumn(line string) int {
	return matchColumn(g.trigger, nil, line)
}

// HasEvidence reports whether any line matches the evidence pattern.
func (g *GuardRule) HasEvidence(lines []string) bool {
	for _, l := range lines {
		if g.evidence.MatchString(l) {
			return true
		}
	}
	return false
}

// ContentRule is an audience-dependent content pattern.
type ContentRule struct {
	ID       string                  `yaml:"id"       json:"id"`
	Category string                  `yaml:"category" json:"category"`
	Pattern  string                  `yaml:"pattern"  json:"pattern"`
	Target   RuleTarget              `yaml:"target"   json:"target,omitempty"`
	Severity map[GradeLevel]Severity `yaml:"severity" json:"severity"`
	// Rating is the minimum content rating a match implies.
	Rating      ContentRating `yaml:"rating"      json:"rating"`
	Message     string        `yaml:"message"     json:"message"`
	Remediation string        `yaml:"remediation" json:"remediation,omitempty"`

	re *regexp.Regexp
}

// Match returns the 1-based column of the first match in line, or 0.
func (c *ContentRule) Match(line string) int {
	return matchColumn(c.re, nil, line)
}

// SeverityFor returns the severity for a grade band, or "" when allowed.
func (c *ContentRule) SeverityFor(grade GradeLevel) Severity {
	return c.Severity[grade]
}

// ContentRating is the age rating implied by a script's content.
type ContentRating string

const (
	RatingAllAges ContentRating = "all_ages"
	Rating9Plus   ContentRating = "9_plus"
	Rating13Plus  ContentRating = "13_plus"
	Rating17Plus  ContentRating = "17_plus"
)

// Rank orders ratings; higher is more restrictive.
func (r ContentRating) Rank() int {
	switch r {
	case Rating9Plus:
		return 1
	case Rating13Plus:
		return 2
	case Rating17Plus:
		return 3
	default:
		return 0
	}
}

// PolicyCategory groups platform policy predicates.
type PolicyCategory string

const (
	PolicyCommunity PolicyCategory = "community_standards"
	PolicySafety    PolicyCategory = "safety"
	PolicyTechnical PolicyCategory = "technical"
)

// PolicyKind selects how a predicate is evaluated.
type PolicyKind string

const (
	PolicyForbid   PolicyKind = "forbid"
	PolicyRequire  PolicyKind = "require"
	PolicyMaxLines PolicyKind = "max_lines"
)

// Policy is one boolean platform-policy predicate.
type Policy struct {
	ID          string         `yaml:"id"          json:"id"`
	Category    PolicyCategory `yaml:"category"    json:"category"`
	Kind        PolicyKind     `yaml:"kind"        json:"kind"`
	Pattern     string         `yaml:"pattern"     json:"pattern,omitempty"`
	Except      string         `yaml:"except"      json:"except,omitempty"`
	Target      RuleTarget     `yaml:"target"      json:"target,omitempty"`
	Limit       int            `yaml:"limit"       json:"limit,omitempty"`
	Description string         `yaml:"description" json:"description"`
	Message     string         `yaml:"message"     json:"message"`
	Remediation string         `yaml:"remediation" json:"remediation,omitempty"`

	re     *regexp.Regexp
	except *regexp.Regexp
}

// Match returns the 1-based column of the first non-excepted match, or 0.
func (p *Policy) Match(line string) int {
	return matchColumn(p.re, p.except, line)
}

// RuleSet is the full declarative catalogue used by every checker.
type RuleSet struct {
	Version    string               `yaml:"version"    json:"version"`
	Syntax     []PatternRule        `yaml:"syntax"     json:"syntax"`
	Security   []PatternRule        `yaml:"security"   json:"security"`
	Guards     []GuardRule          `yaml:"guards"     json:"guards"`
	Content    []ContentRule        `yaml:"content"    json:"content"`
	Subjects   map[Subject][]string `yaml:"subjects"   json:"subjects"`
	Engagement []string             `yaml:"engagement" json:"engagement"`
	Policies   []Policy             `yaml:"policies"   json:"policies"`

	// Digest fingerprints the catalogue sources the set was loaded from.
	Digest string `yaml:"-" json:"-"`

	engagement []*regexp.Regexp
}

// EngagementHits counts engagement patterns matching anywhere in lines.
func (rs *RuleSet) EngagementHits(lines []string) int {
	hits := 0
	for _, re := range rs.engagement {
		for _, l := range lines {
			if re.MatchString(l) {
				hits++
				break
			}
		}
	}
	return hits
}

// Compile validates the catalogue and compiles every pattern. It must be
// called once before the rule set is shared.
func (rs *RuleSet) Compile() error {
	ids := make(map[string]bool)
	seen := func(id string) error {
		if id == "" {
			return fmt.Errorf("rule with empty id")
		}
		if ids[id] {
			return fmt.Errorf("duplicate rule id %q", id)
		}
		ids[id] = true
		return nil
	}

	for _, group := range [][]PatternRule{rs.Syntax, rs.Security} {
		for i := range group {
			r := &group[i]
			if err := seen(r.ID); err != nil {
				return err
			}
			if !r.Severity.Valid() {
				return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
			}
			if err := validTarget(r.Target); err != nil {
				return fmt.Errorf("rule %s: %w", r.ID, err)
			}
			var err error
			if r.re, err = compile(r.ID, r.Pattern); err != nil {
				return err
			}
			if r.except, err = compileOptional(r.ID, r.Except); err != nil {
				return err
			}
			if r.absent, err = compileOptional(r.ID, r.AbsentInBody); err != nil {
				return err
			}
			switch r.Scope {
			case "", "loop", "loop_header":
			default:
				return fmt.Errorf("rule %s: unknown scope %q", r.ID, r.Scope)
			}
		}
	}

	for i := range rs.Guards {
		g := &rs.Guards[i]
		if err := seen(g.ID); err != nil {
			return err
		}
		if !g.Severity.Valid() {
			return fmt.Errorf("guard %s: unknown severity %q", g.ID, g.Severity)
		}
		if err := validTarget(g.Target); err != nil {
			return fmt.Errorf("guard %s: %w", g.ID, err)
		}
		var err error
		if g.trigger, err = compile(g.ID, g.Trigger); err != nil {
			return err
		}
		if g.evidence, err = compile(g.ID, g.Evidence); err != nil {
			return err
		}
	}

	for i := range rs.Content {
		c := &rs.Content[i]
		if err := seen(c.ID); err != nil {
			return err
		}
		for grade, sev := range c.Severity {
			if !sev.Valid() {
				return fmt.Errorf("content %s: unknown severity %q for %s", c.ID, sev, grade)
			}
		}
		if err := validTarget(c.Target); err != nil {
			return fmt.Errorf("content %s: %w", c.ID, err)
		}
		var err error
		if c.re, err = compile(c.ID, c.Pattern); err != nil {
			return err
		}
	}

	for i := range rs.Policies {
		p := &rs.Policies[i]
		if err := seen(p.ID); err != nil {
			return err
		}
		switch p.Category {
		case PolicyCommunity, PolicySafety, PolicyTechnical:
		default:
			return fmt.Errorf("policy %s: unknown category %q", p.ID, p.Category)
		}
		if err := validTarget(p.Target); err != nil {
			return fmt.Errorf("policy %s: %w", p.ID, err)
		}
		var err error
		switch p.Kind {
		case PolicyForbid, PolicyRequire:
			if p.re, err = compile(p.ID, p.Pattern); err != nil {
				return err
			}
			if p.except, err = compileOptional(p.ID, p.Except); err != nil {
				return err
			}
		case PolicyMaxLines:
			if p.Limit <= 0 {
				return fmt.Errorf("policy %s: max_lines needs a positive limit", p.ID)
			}
		default:
			return fmt.Errorf("policy %s: unknown kind %q", p.ID, p.Kind)
		}
	}

	rs.engagement = rs.engagement[:0]
	for i, pat := range rs.Engagement {
		re, err := compile(fmt.Sprintf("engagement[%d]", i), pat)
		if err != nil {
			return err
		}
		rs.engagement = append(rs.engagement, re)
	}

	return nil
}

func validTarget(t RuleTarget) error {
	switch t {
	case "", TargetCode, TargetText, TargetRaw:
		return nil
	default:
		return fmt.Errorf("unknown target %q", t)
	}
}

func compile(id, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("rule %s: empty pattern", id)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", id, err)
	}
	return re, nil
}

func compileOptional(id, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return compile(id, pattern)
}

func matchColumn(re, except *regexp.Regexp, line string) int {
	if re == nil {
		return 0
	}
	for _, loc := range re.FindAllStringIndex(line, -1) {
		if except != nil && except.MatchString(line[loc[0]:loc[1]]) {
			continue
		}
		return loc[0] + 1
	}
	return 0
}
