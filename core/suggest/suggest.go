// Package suggest picks "did you mean" candidates for error messages.
package suggest

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxEditDistance bounds how far a typo may be from a suggestion
const maxEditDistance = 2

// Closest returns the candidate nearest to target, or "" when nothing is
// close enough. Subsequence matches (abbreviations such as "wnd" for
// "window") rank first; otherwise the smallest edit distance within
// maxEditDistance wins.
func Closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxEditDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
