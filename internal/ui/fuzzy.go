package ui

import "strings"

type scoredIdx struct {
	idx   int
	score int
}

// fuzzyMatchScore returns (score, ok). Lower score is better: the sum of the
// positions the needle's runes matched at, so early and tight matches rank
// first. Matching is a case-insensitive subsequence match; spaces in the
// needle are ignored.
func fuzzyMatchScore(needle, haystack string) (int, bool) {
	n := []rune(strings.ReplaceAll(strings.ToLower(needle), " ", ""))
	if len(n) == 0 {
		return 0, true
	}
	score, j := 0, 0
	for i, r := range []rune(strings.ToLower(haystack)) {
		if r != n[j] {
			continue
		}
		score += i
		j++
		if j == len(n) {
			return score, true
		}
	}
	return 0, false
}
