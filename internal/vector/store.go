package vector

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Store pairs a VectorIndex with its id-to-filename Mapping and the files they persist to.
type Store struct {
	index       VectorIndex
	mapping     *Mapping
	indexPath   string
	mappingPath string
	mu          sync.RWMutex
}

// NewStore wraps index. indexPath is the index file (ids go to IDsPath(indexPath)); mappingPath
// is the JSON mapping file.
func NewStore(index VectorIndex, indexPath, mappingPath string) *Store {
	return &Store{
		index:       index,
		mapping:     NewMapping(),
		indexPath:   indexPath,
		mappingPath: mappingPath,
	}
}

// Add appends one product vector under id and records its filename.
func (s *Store) Add(ctx context.Context, id int64, vec []float32, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Add(ctx, []int64{id}, [][]float32{vec}); err != nil {
		return err
	}
	s.mapping.Set(id, filename)
	return nil
}

// Search returns up to k nearest product ids, closest first.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(ctx, query, k)
}

// Filename returns the filename recorded for id, or UnknownFilename.
func (s *Store) Filename(id int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping.Filename(id)
}

// Size returns the number of indexed vectors.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Size()
}

// Dimensions returns the vector dimension.
func (s *Store) Dimensions() int {
	return s.index.Dimensions()
}

// IndexPath returns the index file location.
func (s *Store) IndexPath() string {
	return s.indexPath
}

// Exists reports whether a saved index is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.indexPath)
	return err == nil
}

// Save writes the index, its ids, and then the mapping.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.index.Save(s.indexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := s.mapping.Save(s.mappingPath); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

// Load restores the index and mapping when the index file exists and reports whether it did.
// Otherwise the store is left unchanged.
func (s *Store) Load() (bool, error) {
	if !s.Exists() {
		return false, nil
	}
	mapping, err := LoadMapping(s.mappingPath)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Load(s.indexPath); err != nil {
		return false, fmt.Errorf("load index: %w", err)
	}
	s.mapping = mapping
	return true, nil
}

// Reset replaces the index with an empty one and clears the mapping. The old index is closed.
func (s *Store) Reset(index VectorIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.index
	s.index = index
	s.mapping = NewMapping()
	return old.Close()
}

// Close releases the index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}
