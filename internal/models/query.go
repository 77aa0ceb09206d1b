package models

import "fmt"

// FindQuery is a filename search over the catalog.
type FindQuery struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Fuzzy  bool   `json:"fuzzy,omitempty"` // tolerate typos in filename terms
}

// Validate ensures the query is non-empty and normalizes the limit.
func (q *FindQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}
