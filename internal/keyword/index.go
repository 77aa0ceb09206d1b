// Package keyword indexes product filenames for text lookup ("find red sneaker").
package keyword

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/katachi/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines filename search operations.
type KeywordIndex interface {
	Index(ctx context.Context, p *models.Product) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id int64) error
	// Reset drops every indexed product.
	Reset() error
	DocCount() (uint64, error)
	// Terms returns all unique indexed terms, used for suggestions.
	Terms() ([]string, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    int64
	Score float64
}

// FilenameTerms splits a filename into lowercase words: "RedLeather_bag-02.jpg" gives
// "red leather bag 02". The extension is dropped.
func FilenameTerms(filename string) []string {
	if i := strings.LastIndexByte(filename, '.'); i > 0 {
		filename = filename[:i]
	}
	var terms []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			terms = append(terms, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(filename)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Split camelCase and letter/digit boundaries.
			if len(cur) > 0 {
				prev := runes[i-1]
				if (unicode.IsLower(prev) && unicode.IsUpper(r)) || unicode.IsDigit(prev) != unicode.IsDigit(r) {
					flush()
				}
			}
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return terms
}
