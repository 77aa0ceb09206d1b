// Package vector provides the product vector index and its id-to-filename mapping.
package vector

import "context"

// VectorIndex stores vectors under caller-assigned integer ids and returns nearest neighbours
// by squared Euclidean distance. Ids and vectors stay positionally aligned, including across
// Save and Load.
type VectorIndex interface {
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single search hit.
type VectorResult struct {
	ID       int64   `json:"id"`
	Distance float32 `json:"distance"` // squared L2, smaller is closer
}

// IDsPath returns the sibling file holding the id list for an index saved at indexPath.
func IDsPath(indexPath string) string {
	return indexPath + "_ids.npy"
}
