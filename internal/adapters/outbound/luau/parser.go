// Package luau implements domain.ScriptParser for Roblox Luau source. It is
// a structural parser: it balances blocks and brackets, tracks functions,
// loops and declarations, and reports the first error it meets. It does not
// build an expression tree.
package luau

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdidvp/luaguard/internal/domain"
)

// Parser implements domain.ScriptParser.
type Parser struct{}

// New creates a Parser.
func New() *Parser { return &Parser{} }

// Parse lexes and structurally parses source. Syntax errors are reported in
// the result, not as an error. The only error returned is ctx's.
func (p *Parser) Parse(ctx context.Context, source string) (*domain.ParsedScript, error) {
	lx := newLexer(source)
	lx.run()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ps := &domain.ParsedScript{
		Tokens:    lx.tokens,
		Lines:     splitLines(source),
		CodeLines: splitLines(string(lx.code)),
		TextLines: splitLines(string(lx.text)),
	}

	commentLines := make(map[int]bool)
	for _, c := range lx.comments {
		ps.Comments = append(ps.Comments, strings.TrimSpace(c.text))
		for ln := c.line; ln <= c.endLine; ln++ {
			commentLines[ln] = true
		}
	}
	ps.CommentLines = len(commentLines)

	codeLines := make(map[int]bool)
	for _, t := range lx.tokens {
		codeLines[t.Line] = true
	}
	ps.CodeLineN = len(codeLines)

	if lx.err != nil {
		ps.Errors = append(ps.Errors, *lx.err)
		return ps, nil
	}

	w := &walker{ctx: ctx, tokens: lx.tokens, lines: ps.Lines, commentLines: commentLines}
	w.run()
	if w.cancelled != nil {
		return nil, w.cancelled
	}
	ps.Functions = w.functions
	ps.Loops = w.loops
	ps.Identifiers = w.idents
	if w.err != nil {
		ps.Errors = append(ps.Errors, *w.err)
	}
	return ps, nil
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

type frameKind int

const (
	frameFunction frameKind = iota
	frameDo
	frameIf
	frameWhile
	frameFor
	frameRepeat
	frameExprIf
	frameBracket
)

var frameNames = map[frameKind]string{
	frameFunction: "function",
	frameDo:       "do",
	frameIf:       "if",
	frameWhile:    "while",
	frameFor:      "for",
	frameRepeat:   "repeat",
	frameExprIf:   "if",
}

var closers = map[string]string{"(": ")", "{": "}", "[": "]"}

type frame struct {
	kind frameKind
	// awaiting is the keyword the frame needs before its body starts:
	// "then" for if, "do" for while and for, "" once the body is open.
	awaiting string
	open     domain.Token
	fn       int
	loop     int
	// owner is the innermost function open at or below this frame, and
	// depth the number of blocks between that function and this frame
	// inclusive.
	owner int
	depth int
}

func (f frame) isBlock() bool {
	switch f.kind {
	case frameDo, frameIf, frameWhile, frameFor, frameRepeat:
		return true
	}
	return false
}

// cancelCheckEvery is how many tokens the walker processes between context
// checks.
const cancelCheckEvery = 1024

type walker struct {
	ctx          context.Context
	cancelled    error
	tokens       []domain.Token
	lines        []string
	commentLines map[int]bool

	stack     []frame
	functions []domain.Function
	loops     []domain.Loop
	idents    []domain.Identifier
	err       *domain.SyntaxError

	// exprKeyword is set when the last then/else belonged to an
	// if-expression, so an "if" right after it is an expression too.
	exprKeyword bool
}

func (w *walker) fail(t domain.Token, format string, args ...any) {
	if w.err == nil {
		w.err = &domain.SyntaxError{Line: t.Line, Column: t.Column, Message: fmt.Sprintf(format, args...)}
	}
}

func (w *walker) top() *frame {
	if len(w.stack) == 0 {
		return nil
	}
	return &w.stack[len(w.stack)-1]
}

func (w *walker) pop() frame {
	f := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	return f
}

// currentFunction returns the index of the innermost open function and the
// block depth above it.
func (w *walker) currentFunction() (int, int) {
	top := w.top()
	if top == nil {
		return -1, 0
	}
	return top.owner, top.depth
}

func (w *walker) addComplexity() {
	if fn, _ := w.currentFunction(); fn >= 0 {
		w.functions[fn].Complexity++
	}
}

// push opens f. A function frame must be pushed right after its
// domain.Function is appended.
func (w *walker) push(f frame) {
	f.fn, f.loop = -1, -1
	f.owner, f.depth = w.currentFunction()
	switch {
	case f.kind == frameFunction:
		f.fn = len(w.functions) - 1
		f.owner, f.depth = f.fn, 0
	case f.isBlock():
		f.depth++
	}
	w.stack = append(w.stack, f)
	if f.isBlock() {
		if fn, depth := w.currentFunction(); fn >= 0 && depth > w.functions[fn].MaxNesting {
			w.functions[fn].MaxNesting = depth
		}
	}
}

func (w *walker) run() {
	for i := 0; i < len(w.tokens) && w.err == nil; i++ {
		if i%cancelCheckEvery == 0 {
			if err := w.ctx.Err(); err != nil {
				w.cancelled = err
				return
			}
		}
		t := w.tokens[i]
		switch t.Kind {
		case domain.TokenKeyword:
			w.keyword(i)
		case domain.TokenSymbol:
			w.symbol(t)
		}
	}
	if w.err != nil {
		return
	}
	if f := w.top(); f != nil {
		if f.kind == frameBracket {
			w.fail(f.open, "'%s' expected to close '%s' at line %d", closers[f.open.Text], f.open.Text, f.open.Line)
			return
		}
		if f.kind == frameExprIf {
			w.fail(f.open, "'else' expected in if-expression at line %d", f.open.Line)
			return
		}
		closer := "end"
		if f.kind == frameRepeat {
			closer = "until"
		}
		w.fail(f.open, "'%s' expected to close '%s' at line %d", closer, frameNames[f.kind], f.open.Line)
	}
}

func (w *walker) prev(i int) *domain.Token {
	if i == 0 {
		return nil
	}
	return &w.tokens[i-1]
}

func (w *walker) next(i int) *domain.Token {
	if i+1 >= len(w.tokens) {
		return nil
	}
	return &w.tokens[i+1]
}

var exprSymbols = map[string]bool{
	"=": true, "(": true, ",": true, "{": true, "[": true,
	"==": true, "~=": true, "<": true, "<=": true, ">": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true,
	"^": true, "..": true, "#": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true,
	"%=": true, "^=": true, "..=": true,
}

var exprKeywords = map[string]bool{
	"return": true, "and": true, "or": true, "not": true, "in": true,
	"if": true, "elseif": true, "while": true, "until": true,
}

// inExpression reports whether an "if" at token i starts an if-expression.
func (w *walker) inExpression(i int) bool {
	p := w.prev(i)
	if p == nil {
		return false
	}
	switch p.Kind {
	case domain.TokenSymbol:
		return exprSymbols[p.Text]
	case domain.TokenKeyword:
		if p.Text == "then" || p.Text == "else" {
			return w.exprKeyword
		}
		return exprKeywords[p.Text]
	}
	return false
}

func (w *walker) keyword(i int) {
	t := w.tokens[i]
	top := w.top()
	switch t.Text {
	case "function":
		w.openFunction(i)

	case "local":
		w.declareLocals(i)

	case "do":
		if top != nil && (top.kind == frameWhile || top.kind == frameFor) && top.awaiting == "do" {
			top.awaiting = ""
			return
		}
		w.push(frame{kind: frameDo, open: t})

	case "if":
		w.addComplexity()
		if w.inExpression(i) {
			w.push(frame{kind: frameExprIf, awaiting: "then", open: t})
			return
		}
		w.push(frame{kind: frameIf, awaiting: "then", open: t})

	case "then":
		if top == nil || (top.kind != frameIf && top.kind != frameExprIf) || top.awaiting != "then" {
			w.fail(t, "unexpected 'then'")
			return
		}
		top.awaiting = ""
		w.exprKeyword = top.kind == frameExprIf

	case "elseif":
		if top == nil || (top.kind != frameIf && top.kind != frameExprIf) || top.awaiting != "" {
			w.fail(t, "unexpected 'elseif'")
			return
		}
		w.addComplexity()
		top.awaiting = "then"

	case "else":
		if top == nil || (top.kind != frameIf && top.kind != frameExprIf) || top.awaiting != "" {
			w.fail(t, "unexpected 'else'")
			return
		}
		w.exprKeyword = top.kind == frameExprIf
		if top.kind == frameExprIf {
			w.pop()
		}

	case "while", "for":
		w.addComplexity()
		kind := frameWhile
		if t.Text == "for" {
			kind = frameFor
			w.declareLoopVars(i)
		}
		w.push(frame{kind: kind, awaiting: "do", open: t})
		w.openLoop(t)

	case "repeat":
		w.addComplexity()
		w.push(frame{kind: frameRepeat, open: t})
		w.openLoop(t)

	case "until":
		if top == nil || top.kind != frameRepeat {
			w.fail(t, "unexpected 'until'")
			return
		}
		w.closeFrame(w.pop(), t)

	case "end":
		w.closeEnd(t)

	case "and", "or":
		w.addComplexity()
	}
}

func (w *walker) closeEnd(t domain.Token) {
	top := w.top()
	if top == nil {
		w.fail(t, "'end' without an open block")
		return
	}
	switch top.kind {
	case frameBracket:
		w.fail(t, "'%s' expected to close '%s' at line %d near 'end'", closers[top.open.Text], top.open.Text, top.open.Line)
		return
	case frameExprIf:
		w.fail(t, "'else' expected in if-expression at line %d near 'end'", top.open.Line)
		return
	case frameRepeat:
		w.fail(t, "'until' expected to close 'repeat' at line %d near 'end'", top.open.Line)
		return
	}
	if top.awaiting != "" {
		w.fail(t, "'%s' expected near 'end'", top.awaiting)
		return
	}
	w.closeFrame(w.pop(), t)
}

func (w *walker) closeFrame(f frame, closer domain.Token) {
	if f.fn >= 0 {
		w.functions[f.fn].LineEnd = closer.Line
	}
	if f.loop >= 0 {
		w.loops[f.loop].LineEnd = closer.Line
	}
}

func (w *walker) symbol(t domain.Token) {
	switch t.Text {
	case "(", "{", "[":
		w.push(frame{kind: frameBracket, open: t})
	case ")", "}", "]":
		top := w.top()
		if top == nil || top.kind != frameBracket {
			w.fail(t, "unexpected '%s'", t.Text)
			return
		}
		if closers[top.open.Text] != t.Text {
			w.fail(t, "'%s' expected to close '%s' at line %d near '%s'", closers[top.open.Text], top.open.Text, top.open.Line, t.Text)
			return
		}
		w.pop()
	}
}

func (w *walker) openLoop(t domain.Token) {
	header := ""
	if t.Line-1 < len(w.lines) {
		header = strings.TrimSpace(w.lines[t.Line-1])
	}
	w.loops = append(w.loops, domain.Loop{Kind: t.Text, Header: header, LineStart: t.Line, LineEnd: t.Line})
	w.stack[len(w.stack)-1].loop = len(w.loops) - 1
}

func (w *walker) openFunction(i int) {
	t := w.tokens[i]
	fn := domain.Function{Name: "<anonymous>", LineStart: t.Line, LineEnd: t.Line, Complexity: 1}

	declLine := t.Line
	if p := w.prev(i); p != nil && p.Kind == domain.TokenKeyword && p.Text == "local" {
		fn.Local = true
		declLine = p.Line
		if n := w.next(i); n != nil && n.Kind == domain.TokenName {
			fn.Name = n.Text
			w.idents = append(w.idents, domain.Identifier{Name: n.Text, Kind: domain.IdentFunction, Line: n.Line, Column: n.Column})
		}
	} else if p != nil && p.Kind == domain.TokenSymbol && p.Text == "=" {
		if name := w.assignedName(i - 1); name != "" {
			fn.Name = name
		}
	} else if name, last := w.statementName(i); name != "" {
		fn.Name = name
		w.idents = append(w.idents, domain.Identifier{Name: last.Text, Kind: domain.IdentFunction, Line: last.Line, Column: last.Column})
	}
	fn.HasDocComment = w.commentLines[declLine-1]
	fn.Params = w.params(i)

	w.functions = append(w.functions, fn)
	w.push(frame{kind: frameFunction, open: t})
}

// statementName reads "function a.b:c" and returns "a.b:c" and the last name.
func (w *walker) statementName(i int) (string, domain.Token) {
	var b strings.Builder
	var last domain.Token
	for j := i + 1; j < len(w.tokens); j++ {
		t := w.tokens[j]
		if t.Kind == domain.TokenName {
			b.WriteString(t.Text)
			last = t
			continue
		}
		if t.Kind == domain.TokenSymbol && (t.Text == "." || t.Text == ":") {
			b.WriteString(t.Text)
			continue
		}
		break
	}
	return b.String(), last
}

// assignedName reads the assignment target ending just before token eq.
func (w *walker) assignedName(eq int) string {
	var parts []string
	for j := eq - 1; j >= 0; j-- {
		t := w.tokens[j]
		if t.Kind == domain.TokenName || (t.Kind == domain.TokenSymbol && (t.Text == "." || t.Text == ":")) {
			parts = append([]string{t.Text}, parts...)
			continue
		}
		break
	}
	return strings.Join(parts, "")
}

// params collects parameter names of the function whose keyword is at i.
// Type annotations are skipped: only a name right after "(" or "," counts.
func (w *walker) params(i int) []string {
	j := i + 1
	for j < len(w.tokens) && !(w.tokens[j].Kind == domain.TokenSymbol && w.tokens[j].Text == "(") {
		j++
	}
	var params []string
	depth := 0
	expectName := false
	for ; j < len(w.tokens); j++ {
		t := w.tokens[j]
		if t.Kind == domain.TokenSymbol {
			switch t.Text {
			case "(", "{", "[":
				depth++
				expectName = depth == 1 && t.Text == "("
				continue
			case ")", "}", "]":
				depth--
				if depth == 0 {
					return params
				}
				continue
			case ",":
				expectName = depth == 1
				continue
			case "...":
				if expectName {
					params = append(params, "...")
				}
			}
		}
		if expectName && t.Kind == domain.TokenName {
			params = append(params, t.Text)
			w.idents = append(w.idents, domain.Identifier{Name: t.Text, Kind: domain.IdentParam, Line: t.Line, Column: t.Column})
		}
		expectName = false
	}
	return params
}

// declareLocals records names declared by "local a, b: T = ...".
func (w *walker) declareLocals(i int) {
	n := w.next(i)
	if n == nil || n.Kind != domain.TokenName {
		return
	}
	line := w.tokens[i].Line
	var names []int
	j := i + 1
	for j < len(w.tokens) {
		t := w.tokens[j]
		if t.Kind != domain.TokenName || t.Line != line {
			break
		}
		names = append(names, j)
		j++
		j = w.skipAnnotation(j, line)
		if j < len(w.tokens) && w.tokens[j].Text == "," && w.tokens[j].Kind == domain.TokenSymbol {
			j++
			continue
		}
		break
	}

	constant := false
	if len(names) == 1 && j+1 < len(w.tokens) && w.tokens[j].Text == "=" {
		v := w.tokens[j+1]
		literal := v.Kind == domain.TokenNumber || v.Kind == domain.TokenString ||
			(v.Kind == domain.TokenKeyword && (v.Text == "true" || v.Text == "false"))
		after := w.next(j + 1)
		constant = literal && (after == nil || after.Line != v.Line || after.Text == ";")
	}

	for _, idx := range names {
		t := w.tokens[idx]
		w.idents = append(w.idents, domain.Identifier{
			Name: t.Text, Kind: domain.IdentLocal, Line: t.Line, Column: t.Column, Constant: constant,
		})
	}
}

// skipAnnotation skips ": Type" after a declared name on the same line.
func (w *walker) skipAnnotation(j, line int) int {
	if j >= len(w.tokens) || w.tokens[j].Text != ":" || w.tokens[j].Kind != domain.TokenSymbol {
		return j
	}
	depth := 0
	for j++; j < len(w.tokens); j++ {
		t := w.tokens[j]
		if t.Line != line {
			return j
		}
		if t.Kind == domain.TokenSymbol {
			switch t.Text {
			case "(", "{", "[", "<":
				depth++
			case ")", "}", "]", ">":
				depth--
			case ",", "=":
				if depth <= 0 {
					return j
				}
			}
		}
	}
	return j
}

// declareLoopVars records "for i = ..." and "for k, v in ..." variables.
func (w *walker) declareLoopVars(i int) {
	for j := i + 1; j < len(w.tokens); j++ {
		t := w.tokens[j]
		switch {
		case t.Kind == domain.TokenName:
			w.idents = append(w.idents, domain.Identifier{Name: t.Text, Kind: domain.IdentLocal, Line: t.Line, Column: t.Column})
			j = w.skipAnnotation(j+1, t.Line) - 1
		case t.Kind == domain.TokenSymbol && t.Text == ",":
		default:
			return
		}
	}
}
