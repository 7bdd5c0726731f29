// Package fuzzy ranks stored names against an approximate query by edit distance.
package fuzzy

import (
	"sort"
	"strings"
)

// DefaultMaxDistance is used when the caller gives a negative tolerance
const DefaultMaxDistance = 3

// Candidate is a stored record reduced to what matching needs
type Candidate struct {
	UID  string
	Name string
}

// Result is a matching candidate with its distances. Best is the lower of the
// forward and reversed distances, Other the higher.
type Result struct {
	Candidate
	Best  int
	Other int
}

// Match returns candidates whose name, as stored or with its tokens reversed,
// is within maxDistance edits of query, ignoring case.
//
// Results are ordered by Best, then Other, then UID. A blank query disables
// filtering: every candidate is returned in input order with zero distances.
func Match(candidates []Candidate, query string, maxDistance int) []Result {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}

	q := normalize(query)
	if q == "" {
		results := make([]Result, len(candidates))
		for i, c := range candidates {
			results[i] = Result{Candidate: c}
		}
		return results
	}

	var results []Result
	for _, c := range candidates {
		name := normalize(c.Name)
		forward := Levenshtein(name, q)
		reversed := Levenshtein(reverseTokens(name), q)

		best, other := forward, reversed
		if reversed < forward {
			best, other = reversed, forward
		}
		if best > maxDistance {
			continue
		}
		results = append(results, Result{Candidate: c, Best: best, Other: other})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Best != b.Best {
			return a.Best < b.Best
		}
		if a.Other != b.Other {
			return a.Other < b.Other
		}
		return a.UID < b.UID
	})
	return results
}

// Levenshtein returns the edit distance between a and b, counted in runes
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two rows are enough for the DP table
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// normalize lowercases s and collapses runs of whitespace
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func reverseTokens(s string) string {
	tokens := strings.Fields(s)
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return strings.Join(tokens, " ")
}
