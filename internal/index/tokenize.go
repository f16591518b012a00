package index

import (
	"strings"
	"unicode"
)

// MinTermLen is the minimum token length kept after stopword filtering.
const MinTermLen = 2

// Tokenize splits text on Unicode letter/number boundaries, casefolds, and
// drops stopwords and tokens shorter than MinTermLen. Pure-digit tokens are
// kept (they are not stopwords) unless caller-specific filtering excludes
// them; the composite search path relies on this for BM25 term matching.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		t := strings.ToLower(cur.String())
		cur.Reset()
		if len([]rune(t)) < MinTermLen {
			return
		}
		if IsStopword(t) {
			return
		}
		tokens = append(tokens, t)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// TokenizeKeepAll splits text into lowercase tokens on the same Unicode
// boundaries as Tokenize, but keeps stopwords and short tokens. Used for
// phrase-adjacency checks where the exact token sequence matters.
func TokenizeKeepAll(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tokens = append(tokens, strings.ToLower(cur.String()))
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// AllWords lowercases and splits text on Unicode letter/number boundaries
// with no length or stopword filtering, used where every token matters
// (e.g. negation-word detection).
func AllWords(text string) map[string]struct{} {
	out := map[string]struct{}{}
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		out[strings.ToLower(cur.String())] = struct{}{}
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// SignificantWords tokenizes text for the consolidation engine, which needs
// raw words (4+ characters, case-insensitive) rather than BM25 terms.
func SignificantWords(text string) map[string]struct{} {
	out := map[string]struct{}{}
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		t := strings.ToLower(cur.String())
		cur.Reset()
		if len([]rune(t)) >= 4 {
			out[t] = struct{}{}
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}
