// Package vocab holds the keyword vocabularies and the text normalisation
// shared by detectors and the profile aggregator.
package vocab

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Values is the value-keyword vocabulary scanned for persistent values.
var Values = []string{
	"freedom", "autonomy", "independence", "mastery", "growth", "learning",
	"creativity", "honesty", "integrity", "family", "connection", "community",
	"health", "security", "stability", "adventure", "curiosity", "compassion",
	"kindness", "justice", "fairness", "loyalty", "courage", "discipline",
	"balance", "peace", "faith", "achievement", "success", "purpose",
	"meaning", "respect", "responsibility", "authenticity", "beauty", "simplicity",
}

// Themes is the theme-keyword vocabulary scanned during stress periods and
// for thematic drift.
var Themes = []string{
	"work", "career", "job", "boss", "project", "deadline",
	"money", "finances", "debt", "family", "parents", "children",
	"relationship", "partner", "friends", "loneliness", "conflict", "health",
	"sleep", "illness", "burnout", "school", "exams", "future",
}

// StressEmotions are treated as stress regardless of recorded polarity.
var StressEmotions = map[string]bool{
	"anxiety": true,
	"stress":  true,
}

var negations = map[string]bool{
	"not": true, "never": true, "no": true, "don't": true, "doesn't": true,
	"didn't": true, "isn't": true, "aren't": true, "wasn't": true, "can't": true,
	"cannot": true, "won't": true, "stopped": true, "longer": true, "hate": true,
}

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "been": true,
	"before": true, "being": true, "could": true, "does": true, "doing": true,
	"from": true, "have": true, "having": true, "here": true, "into": true,
	"just": true, "like": true, "more": true, "most": true, "much": true,
	"only": true, "other": true, "over": true, "really": true, "same": true,
	"should": true, "some": true, "still": true, "such": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "thing": true, "things": true, "this": true,
	"those": true, "through": true, "today": true, "very": true, "want": true,
	"week": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "will": true, "with": true, "would": true,
	"your": true, "feel": true, "felt": true, "going": true, "myself": true,
}

// Normalize folds case, applies NFKC and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "’", "'")
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits normalised text into word tokens. Apostrophes inside a word
// are kept so that contractions survive.
func Tokens(s string) []string {
	s = Normalize(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// Match returns the vocabulary terms present in text or tags, in vocabulary
// order and without duplicates.
func Match(text string, tags []string, terms []string) []string {
	present := make(map[string]bool)
	for _, tok := range Tokens(text) {
		present[strings.Trim(tok, "'")] = true
	}
	for _, tag := range tags {
		present[Normalize(tag)] = true
	}
	var out []string
	for _, term := range terms {
		if present[term] {
			out = append(out, term)
		}
	}
	return out
}

// Keywords returns the significant tokens of text: at least four runes, not a
// stopword, first occurrence order.
func Keywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range Tokens(text) {
		tok = strings.Trim(tok, "'")
		if len([]rune(tok)) < 4 || stopwords[tok] || negations[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// HasNegation reports whether text carries a negation cue.
func HasNegation(text string) bool {
	for _, tok := range Tokens(text) {
		if negations[tok] {
			return true
		}
	}
	return false
}
