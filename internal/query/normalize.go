// Package query turns raw user queries into the canonical search string used
// for embedding: lowercased, stopword-free, lemmatized tokens joined by single spaces.
package query

import (
	"strings"
	"unicode"
)

// Normalize is idempotent: Normalize(Normalize(q)) == Normalize(q).
// Empty or all-stopword input yields "".
func Normalize(raw string) string {
	tokens := tokenize(strings.ToLower(raw))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !isAlnum(tok) || IsStopword(tok) {
			continue
		}
		lemma := Lemmatize(tok)
		// a lemma can collapse onto a stopword ("its" -> "it")
		if lemma == "" || IsStopword(lemma) {
			continue
		}
		out = append(out, lemma)
	}
	return strings.Join(out, " ")
}

// tokenize splits on word boundaries. Contractions split at the apostrophe
// and their fragments ("don", "t", "s") are stopwords.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isAlnum(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
