package educational

import (
	"strings"
	"unicode"

	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/fatih/camelcase"
)

// stopwords are dropped from learning objectives before matching.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "using": true, "use": true,
	"how": true, "what": true, "when": true, "why": true, "will": true,
	"able": true, "learn": true, "learners": true, "students": true,
	"student": true, "understand": true, "about": true, "their": true,
	"they": true, "them": true, "each": true, "other": true, "some": true,
	"should": true, "can": true, "basic": true,
}

// wordBag is the set of word stems found in a script's names, strings
// and comments.
type wordBag map[string]bool

func newWordBag(s *domain.Script) wordBag {
	bag := make(wordBag)
	p := s.Parsed
	for _, t := range p.Tokens {
		switch t.Kind {
		case domain.TokenName:
			for _, w := range camelcase.Split(t.Text) {
				bag.add(w)
			}
		case domain.TokenString:
			bag.add(t.Text)
		}
	}
	for _, c := range p.Comments {
		bag.add(c)
	}
	return bag
}

func (b wordBag) add(text string) {
	for _, w := range splitWords(text) {
		b[stem(w)] = true
	}
}

// has reports whether word, or its stem, is in the bag.
func (b wordBag) has(word string) bool {
	return b[stem(strings.ToLower(word))]
}

// splitWords lowercases text and splits it on anything but letters.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// stem strips a common English suffix when at least four letters remain.
func stem(w string) string {
	for _, suffix := range []string{"ies", "ing", "ed", "s"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 4 {
			if suffix == "ies" {
				return w[:len(w)-3] + "y"
			}
			return w[:len(w)-len(suffix)]
		}
	}
	return w
}

// significantWords returns an objective's distinct words of four letters
// or more that are not stopwords.
func significantWords(objective string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range splitWords(objective) {
		if len(w) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
