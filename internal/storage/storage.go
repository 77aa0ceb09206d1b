// Package storage persists catalog product records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/katachi/internal/models"
)

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("product not found")

// Storage defines product persistence operations.
type Storage interface {
	// ReplaceProducts swaps the whole catalog in one transaction; used by rebuild.
	ReplaceProducts(ctx context.Context, products []*models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductByFilename(ctx context.Context, filename string) (*models.Product, error)
	// ListProducts returns products ordered by id; a negative limit returns all of them.
	ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error)
	CountProducts(ctx context.Context) (int64, error)

	Close() error
}
