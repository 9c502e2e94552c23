package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

const (
	exactScore     = 5.0
	fuzzyThreshold = 0.8
	fuzzyWeight    = 3.0
)

// similarity is the normalized edit similarity of a and b in [0, 1].
func similarity(a, b string) float64 {
	return levenshtein.Similarity(a, b, nil)
}

// couldMatch rejects pairs whose length gap alone keeps them under the threshold.
func couldMatch(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return false
	}
	gap := la - lb
	if gap < 0 {
		gap = -gap
	}
	return 1-float64(gap)/float64(longest) >= fuzzyThreshold
}

// keywordScore scores one keyword against the lowercased haystack. A substring hit
// is worth exactScore; otherwise every whitespace token close enough to the keyword
// contributes its similarity times fuzzyWeight.
func keywordScore(keyword, haystack string, tokens []string) float64 {
	if strings.Contains(haystack, keyword) {
		return exactScore
	}
	var score float64
	for _, tok := range tokens {
		if !couldMatch(keyword, tok) {
			continue
		}
		if sim := similarity(keyword, tok); sim >= fuzzyThreshold {
			score += sim * fuzzyWeight
		}
	}
	return score
}

func ruleScore(rule CategoryRule, haystack string, tokens []string) float64 {
	var score float64
	for _, kw := range rule.Keywords {
		score += keywordScore(kw, haystack, tokens)
	}
	return score
}
