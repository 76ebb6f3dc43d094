package query

import "strings"

// irregular noun forms; every value is its own lemma
var irregular = map[string]string{
	"children":   "child",
	"men":        "man",
	"women":      "woman",
	"people":     "person",
	"mice":       "mouse",
	"geese":      "goose",
	"feet":       "foot",
	"teeth":      "tooth",
	"indices":    "index",
	"matrices":   "matrix",
	"vertices":   "vertex",
	"criteria":   "criterion",
	"phenomena":  "phenomenon",
	"analyses":   "analysis",
	"hypotheses": "hypothesis",
	"theses":     "thesis",
	"axes":       "axis",
	"bases":      "basis",
}

// words ending in s that are already singular
var singularS = map[string]struct{}{
	"analysis": {}, "basis": {}, "axis": {}, "thesis": {}, "hypothesis": {},
	"bias": {}, "corpus": {}, "status": {}, "bus": {}, "virus": {}, "focus": {},
	"calculus": {}, "series": {}, "species": {}, "news": {}, "physics": {},
	"mathematics": {}, "statistics": {}, "economics": {}, "lens": {}, "gas": {},
}

// Lemmatize maps a lowercase token to its noun dictionary form using
// WordNet-style detachment rules. Lemmatize(Lemmatize(w)) == Lemmatize(w).
func Lemmatize(tok string) string {
	if lemma, ok := irregular[tok]; ok {
		return lemma
	}
	if _, ok := singularS[tok]; ok {
		return tok
	}
	if len(tok) <= 3 || !strings.HasSuffix(tok, "s") {
		return tok
	}
	switch {
	case strings.HasSuffix(tok, "ss"), strings.HasSuffix(tok, "us"), strings.HasSuffix(tok, "is"):
		return tok
	case strings.HasSuffix(tok, "sses"):
		return strings.TrimSuffix(tok, "es")
	case strings.HasSuffix(tok, "ies") && len(tok) > 4:
		return strings.TrimSuffix(tok, "ies") + "y"
	case strings.HasSuffix(tok, "xes"), strings.HasSuffix(tok, "zes"),
		strings.HasSuffix(tok, "ches"), strings.HasSuffix(tok, "shes"):
		stem := strings.TrimSuffix(tok, "es")
		if lemma, ok := irregular[stem]; ok {
			return lemma
		}
		return stem
	}
	if isDigitString(tok) {
		return tok
	}
	stem := strings.TrimSuffix(tok, "s")
	if lemma, ok := irregular[stem]; ok {
		return lemma
	}
	return stem
}

func isDigitString(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
