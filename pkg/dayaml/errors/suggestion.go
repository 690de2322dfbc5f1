package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance bounds how far a typo may be from a known key.
const maxSuggestDistance = 3

// ClosestKey returns the known key closest to unknown, or "" when nothing is
// close enough. Case-folded subsequence matches (a truncated key) win over
// edit-distance matches.
func ClosestKey(unknown string, known []string) string {
	if unknown == "" || len(known) == 0 {
		return ""
	}
	needle := strings.ToLower(unknown)

	ranks := fuzzy.RankFindFold(needle, known)
	sort.Sort(ranks)
	for _, r := range ranks {
		if r.Distance <= maxSuggestDistance {
			return r.Target
		}
	}

	best := ""
	bestDistance := maxSuggestDistance + 1
	for _, candidate := range known {
		d := fuzzy.LevenshteinDistance(needle, candidate)
		if d < bestDistance {
			bestDistance = d
			best = candidate
		}
	}
	return best
}

// SuggestKey suggests a known key when an unrecognized key is used.
func SuggestKey(unknown string, known []string) string {
	if match := ClosestKey(unknown, known); match != "" {
		return fmt.Sprintf("Did you mean '%s'?", match)
	}
	return ""
}

// SuggestKeys builds one suggestion line for a set of unrecognized keys.
func SuggestKeys(unknown []string, known []string) string {
	var parts []string
	for _, k := range unknown {
		if match := ClosestKey(k, known); match != "" {
			parts = append(parts, fmt.Sprintf("'%s' -> '%s'", k, match))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Did you mean " + strings.Join(parts, ", ") + "?"
}
