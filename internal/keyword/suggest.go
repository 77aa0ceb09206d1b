package keyword

import (
	"sort"
)

// Suggest returns up to n dictionary terms within maxDistance edits of term, closest first
// (ties alphabetical). Exact matches are not suggestions.
func Suggest(dict []string, term string, maxDistance, n int) []string {
	type candidate struct {
		term     string
		distance int
	}
	var cands []candidate
	for _, t := range dict {
		if t == term {
			continue
		}
		diff := len(t) - len(term)
		if diff < 0 {
			diff = -diff
		}
		if diff > maxDistance {
			continue
		}
		if d := LevenshteinDistance(term, t); d <= maxDistance {
			cands = append(cands, candidate{term: t, distance: d})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].distance != cands[j].distance {
			return cands[i].distance < cands[j].distance
		}
		return cands[i].term < cands[j].term
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.term
	}
	return out
}

// LevenshteinDistance returns the minimum number of single-rune insertions, deletions, or
// substitutions turning a into b.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
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
