package quality

import (
	"strings"
	"unicode"

	"github.com/fatih/camelcase"
)

// vagueWords are generic name words that say nothing about the value.
var vagueWords = map[string]bool{
	"data": true, "info": true, "temp": true, "tmp": true, "stuff": true,
	"thing": true, "things": true, "obj": true, "val": true,
	"foo": true, "bar": true, "baz": true, "misc": true,
	"var": true, "my": true,
}

// shortNames are single-letter names accepted by convention.
var shortNames = map[string]bool{
	"_": true, "i": true, "j": true, "k": true, "v": true,
	"x": true, "y": true, "z": true, "n": true, "t": true,
	"dt": true,
}

// NamingProblem returns a description of what is wrong with name, or ""
// when it follows camelCase, PascalCase or UPPER_SNAKE_CASE.
func NamingProblem(name string) string {
	if shortNames[name] {
		return ""
	}
	trimmed := strings.TrimLeft(name, "_")
	if trimmed == "" {
		return ""
	}
	if len(trimmed) == 1 {
		return "single-letter name"
	}
	if isUpperSnake(trimmed) {
		return ""
	}
	if strings.Contains(trimmed, "_") {
		return "snake_case name (use camelCase)"
	}
	if VagueName(trimmed) {
		return "vague name"
	}
	return ""
}

// VagueName reports whether every camel-case word of name is vague.
func VagueName(name string) bool {
	words := camelcase.Split(name)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !vagueWords[strings.ToLower(w)] {
			return false
		}
	}
	return true
}

func isUpperSnake(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			hasLetter = true
		case unicode.IsDigit(r) || r == '_':
		default:
			return false
		}
	}
	return hasLetter
}
