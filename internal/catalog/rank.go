package catalog

import (
	"sort"
	"strings"

	"github.com/hyperjump/katachi/internal/keyword"
	"github.com/hyperjump/katachi/internal/models"
)

// Filename match boosts added to the keyword score. A hit whose filename words equal the
// query words outranks one where they merely appear in order, which outranks any-order matches.
const (
	exactFilenameBoost = 1.0
	wordsInOrderBoost  = 0.5
	allWordsBoost      = 0.25
	prefixMatchBoost   = 0.1
)

// filenameBoost scores how closely filename's words match the query words.
func filenameBoost(queryTerms []string, filename string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	nameTerms := keyword.FilenameTerms(filename)
	if len(nameTerms) == 0 {
		return 0
	}
	if strings.Join(nameTerms, " ") == strings.Join(queryTerms, " ") {
		return exactFilenameBoost
	}
	if termsInOrder(queryTerms, nameTerms) {
		return wordsInOrderBoost
	}
	present := make(map[string]bool, len(nameTerms))
	for _, t := range nameTerms {
		present[t] = true
	}
	all := true
	prefixed := 0
	for _, q := range queryTerms {
		if present[q] {
			continue
		}
		all = false
		for _, t := range nameTerms {
			if strings.HasPrefix(t, q) {
				prefixed++
				break
			}
		}
	}
	if all {
		return allWordsBoost
	}
	return prefixMatchBoost * float64(prefixed) / float64(len(queryTerms))
}

// termsInOrder reports whether query appears as a contiguous run inside name.
func termsInOrder(query, name []string) bool {
	for i := 0; i+len(query) <= len(name); i++ {
		match := true
		for j, q := range query {
			if name[i+j] != q {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// rerank adds filename boosts to each hit's score, sorts by score (ties keep keyword order)
// and renumbers ranks starting at firstRank.
func rerank(query string, hits []*models.ProductHit, firstRank int) {
	terms := keyword.FilenameTerms(query)
	for _, h := range hits {
		h.Score += filenameBoost(terms, h.Product.Filename)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	for i, h := range hits {
		h.Rank = firstRank + i
	}
}
