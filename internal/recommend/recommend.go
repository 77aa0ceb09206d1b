// Package recommend finds catalog products that look like a query image.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/embedding"
	"github.com/hyperjump/katachi/internal/vector"
	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTopK is the number of recommendations returned when none is configured.
const DefaultTopK = 5

// ErrIndexEmpty is returned when no catalog index has been built or loaded.
var ErrIndexEmpty = errors.New("product index is empty")

// Encoder produces the normalized embedding of an image file.
type Encoder interface {
	EncodeImage(ctx context.Context, path string, opts embedding.EncodeOptions) ([]float32, error)
}

// Store is the searchable product catalog.
type Store interface {
	Search(ctx context.Context, query []float32, k int) ([]*vector.VectorResult, error)
	Filename(id int64) string
	Size() int
}

// Recommendation is one similar product.
type Recommendation struct {
	Rank     int     `json:"rank"`
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	Distance float32 `json:"distance"`
}

// Service runs encode → search → filename lookup.
type Service struct {
	encoder Encoder
	store   Store
	topK    int
	cache   cache.Cache
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTopK sets how many products Recommend returns.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithCache keeps query embeddings in c, keyed by image path.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = utils.OrNop(l)
	}
}

// NewService creates a recommender.
func NewService(encoder Encoder, store Store, opts ...Option) *Service {
	s := &Service{encoder: encoder, store: store, topK: DefaultTopK, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TopK returns the configured result count.
func (s *Service) TopK() int {
	return s.topK
}

// Recommend returns the products closest to the image at path, closest first.
func (s *Service) Recommend(ctx context.Context, path string, opts embedding.EncodeOptions) ([]Recommendation, error) {
	if s.store.Size() == 0 {
		return nil, ErrIndexEmpty
	}
	vec, err := s.encode(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return s.RecommendVector(ctx, vec)
}

// RecommendVector searches with an already computed embedding.
func (s *Service) RecommendVector(ctx context.Context, vec []float32) ([]Recommendation, error) {
	if s.store.Size() == 0 {
		return nil, ErrIndexEmpty
	}
	hits, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	out := make([]Recommendation, len(hits))
	for i, h := range hits {
		out[i] = Recommendation{
			Rank:     i + 1,
			ID:       h.ID,
			Filename: s.store.Filename(h.ID),
			Distance: h.Distance,
		}
	}
	return out, nil
}

func (s *Service) encode(ctx context.Context, path string, opts embedding.EncodeOptions) ([]float32, error) {
	// Saving the preprocessed image is a side effect of encoding, so it bypasses the cache.
	if s.cache == nil || opts.SavePreprocessed {
		return s.encoder.EncodeImage(ctx, path, opts)
	}
	// Keyed on content so an overwritten file is re-encoded.
	content, err := os.ReadFile(path)
	if err != nil {
		return s.encoder.EncodeImage(ctx, path, opts)
	}
	key, err := cache.EmbeddingKey(content)
	if err != nil {
		return s.encoder.EncodeImage(ctx, path, opts)
	}
	if v, ok := s.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			s.logger.Debug("embedding cache hit", zap.String("path", path))
			return vec, nil
		}
	}
	vec, err := s.encoder.EncodeImage(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, vec)
	return vec, nil
}
