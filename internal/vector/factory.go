package vector

import (
	"fmt"
	"strings"

	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// IndexType names a vector index implementation in configuration.
type IndexType string

const (
	// IndexTypeMemory is exact brute-force L2 search held in memory.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is a FAISS IndexFlatL2. Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// ParseIndexType validates a configured index type. Empty selects memory.
func ParseIndexType(s string) (IndexType, error) {
	switch t := IndexType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", IndexTypeMemory:
		return IndexTypeMemory, nil
	case IndexTypeFAISS:
		return t, nil
	default:
		return "", fmt.Errorf("unknown index type: %s (supported: memory, faiss)", s)
	}
}

// NewVectorIndex creates an empty index of the given type.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	t, err := ParseIndexType(indexType)
	if err != nil {
		return nil, err
	}
	if t == IndexTypeFAISS {
		return NewFAISSIndex(dimensions)
	}
	return NewMemoryIndex(dimensions)
}

// Factory resolves indexType once and returns a constructor for empty indices of that type,
// along with the type actually used. Asking for FAISS in a build without it falls back to
// memory with a warning.
func Factory(indexType string, dimensions int, logger *zap.Logger) (func() (VectorIndex, error), IndexType, error) {
	t, err := ParseIndexType(indexType)
	if err != nil {
		return nil, "", err
	}
	if t == IndexTypeFAISS && !IsFAISSAvailable() {
		utils.OrNop(logger).Warn("FAISS support not compiled in, falling back to memory index",
			zap.Int("dimensions", dimensions))
		t = IndexTypeMemory
	}
	return func() (VectorIndex, error) {
		return NewVectorIndex(string(t), dimensions)
	}, t, nil
}

// IsFAISSAvailable reports whether FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
