package domain

import "strings"

// TokenKind classifies a lexical token.
type TokenKind string

const (
	TokenName    TokenKind = "name"
	TokenKeyword TokenKind = "keyword"
	TokenNumber  TokenKind = "number"
	TokenString  TokenKind = "string"
	TokenSymbol  TokenKind = "symbol"
)

// Token is one lexical token. Comments are not tokens.
type Token struct {
	Kind   TokenKind `json:"kind"`
	Text   string    `json:"text"`
	Line   int       `json:"line"`
	Column int       `json:"column"`
}

// Function describes one function body.
type Function struct {
	Name          string   `json:"name"`
	LineStart     int      `json:"line_start"`
	LineEnd       int      `json:"line_end"`
	Params        []string `json:"params,omitempty"`
	Complexity    int      `json:"complexity"`
	MaxNesting    int      `json:"max_nesting"`
	HasDocComment bool     `json:"has_doc_comment"`
	Local         bool     `json:"local"`
}

// Lines returns the number of source lines the function spans.
func (f Function) Lines() int { return f.LineEnd - f.LineStart + 1 }

// Loop describes one loop body (while, for, repeat).
type Loop struct {
	Kind      string `json:"kind"`
	Header    string `json:"header"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
}

// IdentifierKind tells where a name was declared.
type IdentifierKind string

const (
	IdentLocal    IdentifierKind = "local"
	IdentFunction IdentifierKind = "function"
	IdentParam    IdentifierKind = "param"
)

// Identifier is one declared name.
type Identifier struct {
	Name   string         `json:"name"`
	Kind   IdentifierKind `json:"kind"`
	Line   int            `json:"line"`
	Column int            `json:"column"`
	// Constant is set when a local is bound once to a literal value.
	Constant bool `json:"constant,omitempty"`
}

// SyntaxError is a lexical or structural error at a location.
type SyntaxError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// ParsedScript holds everything the parser extracts from one source.
type ParsedScript struct {
	Tokens []Token `json:"tokens"`
	// Lines is the raw source split on newlines.
	Lines []string `json:"lines"`
	// CodeLines has comments removed and string contents blanked, so
	// column positions still line up with Lines.
	CodeLines []string `json:"code_lines"`
	// TextLines has comments removed but keeps string contents.
	TextLines []string `json:"text_lines"`
	// Comments holds the text of each comment, in source order.
	Comments     []string      `json:"comments,omitempty"`
	CommentLines int           `json:"comment_lines"`
	CodeLineN    int           `json:"code_line_count"`
	Functions    []Function    `json:"functions,omitempty"`
	Loops        []Loop        `json:"loops,omitempty"`
	Identifiers  []Identifier  `json:"identifiers,omitempty"`
	Errors       []SyntaxError `json:"errors,omitempty"`
}

// OK reports whether the source parsed cleanly and contains code.
func (p *ParsedScript) OK() bool {
	return p != nil && len(p.Errors) == 0 && len(p.Tokens) > 0
}

// Script is the immutable input every checker of one request sees.
type Script struct {
	Request ValidationRequest
	Parsed  *ParsedScript
	// ParseErr is set when the parser itself failed (not a syntax error).
	ParseErr error
}

// NewScript copies the request's slices so that checkers running in
// parallel never share mutable state with the caller.
func NewScript(req ValidationRequest, parsed *ParsedScript, parseErr error) *Script {
	req.LearningObjectives = append([]string(nil), req.LearningObjectives...)
	return &Script{Request: req, Parsed: parsed, ParseErr: parseErr}
}

// Usable returns ErrUnparseable unless the script parsed cleanly.
func (s *Script) Usable() error {
	if s == nil || s.ParseErr != nil || !s.Parsed.OK() {
		return ErrUnparseable
	}
	return nil
}

// Source returns the raw script text.
func (s *Script) Source() string { return s.Request.ScriptCode }

// LineText returns the target view of the source used by pattern rules.
func (s *Script) LineText(target RuleTarget) []string {
	if s.Parsed == nil {
		return strings.Split(s.Request.ScriptCode, "\n")
	}
	switch target {
	case TargetText:
		return s.Parsed.TextLines
	case TargetRaw:
		return s.Parsed.Lines
	default:
		return s.Parsed.CodeLines
	}
}
