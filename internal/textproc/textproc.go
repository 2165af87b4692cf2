// Package textproc is the text-normalisation pipeline consumed by the
// index: it lower-cases input, splits on non-alphanumeric boundaries,
// removes stop-words, and applies a suffix-based stemmer. The index core
// treats Normalize as a pure function.
package textproc

import (
	"strings"
	"unicode"
)

// Field identifies which document field a token came from.
type Field uint8

const (
	FieldTitle Field = iota
	FieldAuthors
	FieldAbstract

	// NumFields is the number of distinct document fields.
	NumFields = 3
)

// Token is a single normalised term with its 0-based position in the
// concatenated document text and the field it occurred in.
type Token struct {
	Term     string
	Position int
	Field    Field
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {}, "we": {},
}

// Normalize tokenizes the three document fields in order (title, authors,
// abstract) and returns the normalised token stream. Positions are global
// offsets over the concatenation, so proximity checks work across field
// boundaries.
func Normalize(title, authors, abstract string) []Token {
	tokens := make([]Token, 0, 32)
	pos := 0
	fields := [NumFields]string{title, authors, abstract}
	for f, text := range fields {
		for _, word := range splitWords(text) {
			term, ok := normalizeWord(word)
			if !ok {
				continue
			}
			tokens = append(tokens, Token{
				Term:     term,
				Position: pos,
				Field:    Field(f),
			})
			pos++
		}
	}
	return tokens
}

// NormalizeQuery normalizes a raw query string into bare terms, using the
// same rules as document indexing so query terms and indexed terms agree.
func NormalizeQuery(query string) []string {
	terms := make([]string, 0, 8)
	for _, word := range splitWords(query) {
		if term, ok := normalizeWord(word); ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// NormalizePrefix lower-cases and strips an autocomplete prefix without
// stemming: a half-typed word must not be stemmed or the trie walk would
// miss completions.
func NormalizePrefix(prefix string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(prefix)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalizeWord(word string) (string, bool) {
	if len(word) < 2 {
		return "", false
	}
	if _, isStop := stopWords[word]; isStop {
		return "", false
	}
	stemmed := stem(word)
	if stemmed == "" {
		return "", false
	}
	return stemmed, true
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// Longest suffixes first so e.g. "ational" wins over "tion".
var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// stem applies the first matching suffix rule. The stemmed form must keep
// at least minLen characters or the word is left unchanged.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stemmed) >= rule.minLen {
				return stemmed
			}
		}
	}
	return word
}
