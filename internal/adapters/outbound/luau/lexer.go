package luau

import (
	"fmt"

	"github.com/abdidvp/luaguard/internal/domain"
)

var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "if": true,
	"in": true, "local": true, "nil": true, "not": true, "or": true,
	"repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// Longest first within each length class.
var symbols3 = []string{"...", "//=", "..="}

var symbols2 = []string{
	"==", "~=", "<=", ">=", "..", "::", "->", "//",
	"+=", "-=", "*=", "/=", "%=", "^=",
}

const symbols1 = "+-*/%^#&~|<>=(){}[];:,.?@"

type comment struct {
	line    int
	endLine int
	text    string
}

// lexer tokenizes Luau source. Alongside the token stream it builds two
// masked copies of the source of identical length: code (comments and
// string contents blanked) and text (comments blanked).
type lexer struct {
	src  string
	pos  int
	line int
	col  int

	tokens   []domain.Token
	comments []comment
	code     []byte
	text     []byte
	err      *domain.SyntaxError
}

func newLexer(src string) *lexer {
	return &lexer{
		src:  src,
		line: 1,
		col:  1,
		code: []byte(src),
		text: []byte(src),
	}
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.src) {
		return l.src[l.pos+offset]
	}
	return 0
}

func (l *lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *lexer) advanceN(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		l.advance()
	}
}

func (l *lexer) fail(line, col int, format string, args ...any) {
	if l.err == nil {
		l.err = &domain.SyntaxError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
	}
}

func (l *lexer) emit(kind domain.TokenKind, start, line, col int) {
	l.tokens = append(l.tokens, domain.Token{
		Kind:   kind,
		Text:   l.src[start:l.pos],
		Line:   line,
		Column: col,
	})
}

// blank replaces bytes in [from,to) with spaces, keeping newlines.
func blank(buf []byte, from, to int) {
	for i := from; i < to && i < len(buf); i++ {
		if buf[i] != '\n' {
			buf[i] = ' '
		}
	}
}

func (l *lexer) run() {
	for l.pos < len(l.src) && l.err == nil {
		c := l.src[l.pos]
		switch {
		case c == '\n' || c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.advance()
		case c == '-' && l.peek(1) == '-':
			l.lexComment()
		case isLetter(c):
			l.lexName()
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			l.lexNumber()
		case c == '"' || c == '\'':
			l.lexQuoted(c)
		case c == '`':
			l.lexInterpolated()
		case c == '[' && (l.peek(1) == '[' || l.peek(1) == '='):
			if level, ok := l.longBracketLevel(); ok {
				l.lexLongString(level)
			} else {
				l.lexSymbol()
			}
		default:
			l.lexSymbol()
		}
	}
}

func (l *lexer) lexComment() {
	start, line, col := l.pos, l.line, l.col
	l.advanceN(2)
	if l.peek(0) == '[' {
		if level, ok := l.longBracketLevel(); ok {
			if !l.skipLongBracket(level) {
				l.fail(line, col, "unfinished long comment")
				return
			}
			l.recordComment(start, line)
			return
		}
	}
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance()
	}
	l.recordComment(start, line)
}

func (l *lexer) recordComment(start, line int) {
	blank(l.code, start, l.pos)
	blank(l.text, start, l.pos)
	l.comments = append(l.comments, comment{
		line:    line,
		endLine: l.line,
		text:    l.src[start+2 : l.pos],
	})
}

// longBracketLevel inspects "[", "[=", "[==[" at pos and returns the level
// when a long bracket opens there.
func (l *lexer) longBracketLevel() (int, bool) {
	if l.peek(0) != '[' {
		return 0, false
	}
	level := 0
	for l.peek(1+level) == '=' {
		level++
	}
	if l.peek(1+level) != '[' {
		return 0, false
	}
	return level, true
}

// skipLongBracket consumes an opening long bracket of the given level and
// everything up to and including its closing bracket.
func (l *lexer) skipLongBracket(level int) bool {
	l.advanceN(level + 2)
	for l.pos < len(l.src) {
		if l.src[l.pos] == ']' {
			n := 0
			for l.peek(1+n) == '=' {
				n++
			}
			if n == level && l.peek(1+n) == ']' {
				l.advanceN(level + 2)
				return true
			}
		}
		l.advance()
	}
	return false
}

func (l *lexer) lexLongString(level int) {
	start, line, col := l.pos, l.line, l.col
	if !l.skipLongBracket(level) {
		l.fail(line, col, "unfinished long string")
		return
	}
	blank(l.code, start+level+2, l.pos-level-2)
	l.emit(domain.TokenString, start, line, col)
}

func (l *lexer) lexQuoted(quote byte) {
	start, line, col := l.pos, l.line, l.col
	l.advance()
	for {
		if l.pos >= len(l.src) {
			l.fail(line, col, "unfinished string")
			return
		}
		c := l.src[l.pos]
		switch {
		case c == '\\':
			l.advanceN(2)
			continue
		case c == '\n':
			l.fail(line, col, "unfinished string")
			return
		case c == quote:
			l.advance()
			blank(l.code, start+1, l.pos-1)
			l.emit(domain.TokenString, start, line, col)
			return
		}
		l.advance()
	}
}

func (l *lexer) lexInterpolated() {
	start, line, col := l.pos, l.line, l.col
	l.advance()
	depth := 0
	for {
		if l.pos >= len(l.src) {
			l.fail(line, col, "unfinished interpolated string")
			return
		}
		c := l.src[l.pos]
		switch {
		case c == '\\':
			l.advanceN(2)
			continue
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == '\n' && depth == 0:
			l.fail(line, col, "unfinished interpolated string")
			return
		case c == '`' && depth == 0:
			l.advance()
			blank(l.code, start+1, l.pos-1)
			l.emit(domain.TokenString, start, line, col)
			return
		}
		l.advance()
	}
}

func (l *lexer) lexName() {
	start, line, col := l.pos, l.line, l.col
	for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos])) {
		l.advance()
	}
	kind := domain.TokenName
	if keywords[l.src[start:l.pos]] {
		kind = domain.TokenKeyword
	}
	l.emit(kind, start, line, col)
}

func (l *lexer) lexNumber() {
	start, line, col := l.pos, l.line, l.col
	hex := l.peek(0) == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X')
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isLetter(c) || isDigit(c) || c == '.' {
			l.advance()
			continue
		}
		if (c == '+' || c == '-') && !hex && l.pos > start {
			prev := l.src[l.pos-1]
			if prev == 'e' || prev == 'E' {
				l.advance()
				continue
			}
		}
		break
	}
	l.emit(domain.TokenNumber, start, line, col)
}

func (l *lexer) lexSymbol() {
	start, line, col := l.pos, l.line, l.col
	rest := l.src[l.pos:]
	for _, group := range [][]string{symbols3, symbols2} {
		for _, s := range group {
			if len(rest) >= len(s) && rest[:len(s)] == s {
				l.advanceN(len(s))
				l.emit(domain.TokenSymbol, start, line, col)
				return
			}
		}
	}
	c := l.src[l.pos]
	for i := 0; i < len(symbols1); i++ {
		if symbols1[i] == c {
			l.advance()
			l.emit(domain.TokenSymbol, start, line, col)
			return
		}
	}
	if c >= 0x80 {
		l.fail(line, col, "unexpected non-ASCII character outside a string")
		return
	}
	l.fail(line, col, "unexpected symbol near '%c'", c)
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
