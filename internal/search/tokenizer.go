package search

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase search tokens with code-aware
// rules: identifiers split on underscores and hyphens, camelCase and
// PascalCase split on case transitions, acronym runs stay intact
// (HTTPSConnection yields https, connection).
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	for _, word := range splitNonWord(text) {
		for _, part := range splitCamelCase(word) {
			part = strings.ToLower(part)
			if part != "" {
				tokens = append(tokens, part)
			}
		}
	}
	return tokens
}

// splitNonWord extracts runs of letters, digits, and underscores, then
// splits those runs on the underscores.
func splitNonWord(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

// splitCamelCase breaks a single word on lower-to-upper transitions and
// before the last capital of an acronym run followed by lowercase.
func splitCamelCase(word string) []string {
	runes := []rune(word)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		if unicode.IsLower(prev) && unicode.IsUpper(cur) {
			boundary = true
		}
		// Acronym run ending: HTTPSConn splits before the C of Conn.
		if unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
