package metrics

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Comparison is the result of checking one prediction against its label
type Comparison struct {
	Expected   string
	Actual     string
	Exact      bool    // byte-for-byte match after NFC
	Folded     bool    // match ignoring case
	Distance   int     // Levenshtein distance in runes
	Similarity float64 // 0.0 to 1.0
}

// Compare scores actual against expected. Both strings are NFC-normalized
// and trimmed first, since captcha labels are single tokens.
func Compare(expected, actual string) Comparison {
	e := norm.NFC.String(strings.TrimSpace(expected))
	a := norm.NFC.String(strings.TrimSpace(actual))

	distance := levenshteinDistance(e, a)
	return Comparison{
		Expected:   expected,
		Actual:     actual,
		Exact:      e == a,
		Folded:     strings.EqualFold(e, a),
		Distance:   distance,
		Similarity: similarity(e, a, distance),
	}
}

// similarity converts a distance into a ratio of the longer string
func similarity(s1, s2 string, distance int) float64 {
	if s1 == s2 {
		return 1.0
	}

	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - (float64(distance) / float64(maxLen))
}

// levenshteinDistance calculates the Levenshtein distance between two
// strings, counting runes rather than bytes
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rolling rows of the DP matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}

			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost
			curr[j] = min(deletion, insertion, substitution)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
