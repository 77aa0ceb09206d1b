package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/katachi/internal/keyword"
	"github.com/hyperjump/katachi/internal/models"
	"github.com/hyperjump/katachi/internal/storage"
	"go.uber.org/zap"
)

const (
	suggestDistance = 2
	suggestLimit    = 5
)

// ErrNoKeywordIndex is returned by Find when the catalog has no keyword index.
var ErrNoKeywordIndex = errors.New("keyword index not configured")

// FindResult holds filename search hits, and spelling suggestions when nothing matched.
type FindResult struct {
	Query       string               `json:"query"`
	Hits        []*models.ProductHit `json:"hits"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

// Find searches product filenames. Keyword scores are boosted by how closely the filename
// words match the query before paging.
func (c *Catalog) Find(ctx context.Context, q models.FindQuery) (*FindResult, error) {
	if c.keywords == nil {
		return nil, ErrNoKeywordIndex
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var opts *keyword.SearchOptions
	if q.Fuzzy {
		opts = &keyword.SearchOptions{FuzzyEnabled: true}
	}
	results, err := c.keywords.Search(ctx, q.Query, q.Offset+q.Limit, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]*models.ProductHit, 0, len(results))
	for _, r := range results {
		p, err := c.lookup(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &models.ProductHit{Product: p, Score: r.Score})
	}
	rerank(q.Query, hits, 1)
	if q.Offset < len(hits) {
		hits = hits[q.Offset:]
	} else {
		hits = nil
	}

	out := &FindResult{Query: q.Query, Hits: hits}
	if out.Hits == nil {
		out.Hits = []*models.ProductHit{}
	}
	if len(out.Hits) == 0 {
		out.Suggestions = c.suggest(q.Query)
	}
	return out, nil
}

// lookup prefers the stored record and falls back to the index mapping.
func (c *Catalog) lookup(ctx context.Context, id int64) (*models.Product, error) {
	if c.storage != nil {
		p, err := c.storage.GetProduct(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	return &models.Product{ID: id, Filename: c.store.Filename(id)}, nil
}

func (c *Catalog) suggest(query string) []string {
	terms, err := c.keywords.Terms()
	if err != nil {
		c.logger.Warn("failed to read keyword terms", zap.Error(err))
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, term := range keyword.FilenameTerms(query) {
		for _, s := range keyword.Suggest(terms, term, suggestDistance, suggestLimit) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
