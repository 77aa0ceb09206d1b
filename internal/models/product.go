// Package models defines the catalog records shared by storage, search, and the API.
package models

import "time"

// Product is one catalog image. ID is its position in the vector index.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	Path      string    `json:"path" db:"path"`
	Format    string    `json:"format" db:"format"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	ModTime   time.Time `json:"mod_time" db:"mod_time"`
	IndexedAt time.Time `json:"indexed_at" db:"indexed_at"`
}

// ProductHit is a product matched by a filename search.
type ProductHit struct {
	Product *Product `json:"product"`
	Score   float64  `json:"score"`
	Rank    int      `json:"rank"`
}
