package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationType selects which checkers a request runs.
type ValidationType string

const (
	TypeSyntax        ValidationType = "syntax"
	TypeSecurity      ValidationType = "security"
	TypeQuality       ValidationType = "quality"
	TypeCompliance    ValidationType = "compliance"
	TypeEducational   ValidationType = "educational"
	TypeComprehensive ValidationType = "comprehensive"
)

var validationTypes = []ValidationType{
	TypeSyntax, TypeSecurity, TypeQuality, TypeCompliance, TypeEducational, TypeComprehensive,
}

// Includes reports whether t selects the named checker.
func (t ValidationType) Includes(name CheckerName) bool {
	if t == TypeComprehensive || t == "" {
		return true
	}
	return string(t) == string(name)
}

// GradeLevel is an audience age band.
type GradeLevel string

const (
	GradeElementary GradeLevel = "elementary"
	GradeMiddle     GradeLevel = "middle_school"
	GradeHigh       GradeLevel = "high_school"
	GradeCollege    GradeLevel = "college"
)

// GradeLevels lists bands from youngest to oldest.
var GradeLevels = []GradeLevel{GradeElementary, GradeMiddle, GradeHigh, GradeCollege}

// Subject is a declared curriculum subject.
type Subject string

const (
	SubjectMath            Subject = "math"
	SubjectScience         Subject = "science"
	SubjectComputerScience Subject = "computer_science"
	SubjectLanguageArts    Subject = "language_arts"
	SubjectHistory         Subject = "history"
	SubjectGeography       Subject = "geography"
	SubjectArt             Subject = "art"
	SubjectMusic           Subject = "music"
)

// Subjects lists every recognized subject.
var Subjects = []Subject{
	SubjectMath, SubjectScience, SubjectComputerScience, SubjectLanguageArts,
	SubjectHistory, SubjectGeography, SubjectArt, SubjectMusic,
}

// ValidationRequest is one script submitted for validation. Requests are
// treated as immutable once handed to the engine.
type ValidationRequest struct {
	ID                 string         `json:"id,omitempty"`
	ScriptCode         string         `json:"scriptCode"`
	ScriptName         string         `json:"scriptName"`
	ValidationType     ValidationType `json:"validationType,omitempty"`
	GradeLevel         GradeLevel     `json:"gradeLevel,omitempty"`
	Subject            Subject        `json:"subject,omitempty"`
	LearningObjectives []string       `json:"learningObjectives,omitempty"`
	StrictMode         bool           `json:"strictMode"`
	IncludeSuggestions bool           `json:"includeSuggestions"`
	Revision           string         `json:"revision,omitempty"`
}

// HasAudience reports whether any audience metadata was supplied.
func (r ValidationRequest) HasAudience() bool {
	return r.GradeLevel != "" || r.Subject != "" || len(r.LearningObjectives) > 0
}

// EffectiveType returns the validation type, defaulting to comprehensive.
func (r ValidationRequest) EffectiveType() ValidationType {
	if r.ValidationType == "" {
		return TypeComprehensive
	}
	return r.ValidationType
}

// EffectiveGrade returns the declared grade band or the strictest band.
func (r ValidationRequest) EffectiveGrade() GradeLevel {
	if r.GradeLevel == "" {
		return GradeElementary
	}
	return r.GradeLevel
}

// Objectives returns the non-blank learning objectives, trimmed.
func (r ValidationRequest) Objectives() []string {
	var out []string
	for _, o := range r.LearningObjectives {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CheckShape validates enum fields and the size limit. It runs before any
// checker and only returns input errors.
func (r ValidationRequest) CheckShape(maxBytes int) error {
	if maxBytes > 0 && len(r.ScriptCode) > maxBytes {
		return NewInputError(CodeScriptTooLarge,
			fmt.Sprintf("script %q is %d bytes (limit %d)", r.ScriptName, len(r.ScriptCode), maxBytes))
	}
	if r.ValidationType != "" && !slices.Contains(validationTypes, r.ValidationType) {
		return NewInputError(CodeInvalidField, fmt.Sprintf("unknown validationType %q", r.ValidationType))
	}
	if r.GradeLevel != "" && !slices.Contains(GradeLevels, r.GradeLevel) {
		return NewInputError(CodeInvalidField, fmt.Sprintf("unknown gradeLevel %q", r.GradeLevel))
	}
	if r.Subject != "" && !slices.Contains(Subjects, r.Subject) {
		return NewInputError(CodeInvalidField, fmt.Sprintf("unknown subject %q", r.Subject))
	}
	if r.ValidationType == TypeEducational && !r.HasAudience() {
		return NewInputError(CodeMissingAudience, "educational validation requires gradeLevel, subject or learningObjectives")
	}
	return nil
}
