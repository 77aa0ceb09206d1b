package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/embedding"
	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoTrainedModels is returned when a category has no usable trained heads.
var ErrNoTrainedModels = errors.New("no trained models for category")

// Outcome is the result of attempting trained classification. Callers branch on OK instead
// of treating a missing model directory as exceptional.
type Outcome struct {
	Attributes Attributes
	Err        error
}

// OK reports whether trained classification produced attributes.
func (o Outcome) OK() bool {
	return o.Err == nil && len(o.Attributes) > 0
}

// TrainedService runs trained heads stored under <modelsDir>/<category>/<attribute>/.
type TrainedService struct {
	model     Scorer
	cache     cache.Cache
	modelsDir string
	logger    *zap.Logger
}

// TrainedOption configures a TrainedService.
type TrainedOption func(*TrainedService)

// WithLogger sets the logger used for partial-load warnings.
func WithLogger(l *zap.Logger) TrainedOption {
	return func(s *TrainedService) {
		s.logger = utils.OrNop(l)
	}
}

// NewTrainedService creates a trained attribute service. Loaded heads are kept in c.
func NewTrainedService(model Scorer, c cache.Cache, modelsDir string, opts ...TrainedOption) *TrainedService {
	s := &TrainedService{model: model, cache: c, modelsDir: modelsDir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Try classifies path with every head found for category. Heads that fail to load are
// logged and skipped.
func (s *TrainedService) Try(ctx context.Context, path string, category Category) Outcome {
	attrs, err := s.AttributeNames(category)
	if err != nil {
		return Outcome{Err: err}
	}
	vec, err := s.model.EncodeImage(ctx, path, embedding.EncodeOptions{})
	if err != nil {
		return Outcome{Err: err}
	}
	out := make(Attributes, len(attrs))
	for _, attr := range attrs {
		head, err := s.LoadHead(category, attr)
		if err != nil {
			s.logger.Warn("skipping attribute model",
				zap.String("category", string(category)),
				zap.String("attribute", attr),
				zap.Error(err))
			continue
		}
		pred, err := head.Predict(vec)
		if err != nil {
			s.logger.Warn("skipping attribute model",
				zap.String("category", string(category)),
				zap.String("attribute", attr),
				zap.Error(err))
			continue
		}
		out[attr] = pred
	}
	if len(out) == 0 {
		return Outcome{Err: fmt.Errorf("%w %q: every attribute model failed to load", ErrNoTrainedModels, category)}
	}
	return Outcome{Attributes: out}
}

// Classify is Try with the outcome unpacked.
func (s *TrainedService) Classify(ctx context.Context, path string, category Category) (Attributes, error) {
	o := s.Try(ctx, path, category)
	return o.Attributes, o.Err
}

// AttributeNames lists the attribute directories for category in sorted order. The listing
// is cached per category until the cache is cleared.
func (s *TrainedService) AttributeNames(category Category) ([]string, error) {
	key, err := cache.CategoryModelsKey(string(category))
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(key); ok {
		if names, ok := v.([]string); ok {
			return names, nil
		}
	}
	dir := filepath.Join(s.modelsDir, string(category))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w %q: %s does not exist", ErrNoTrainedModels, category, dir)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w %q: %s has no attribute directories", ErrNoTrainedModels, category, dir)
	}
	sort.Strings(names)
	s.cache.Set(key, names)
	return names, nil
}

// LoadHead returns the head for (category, attribute), reading it from disk only on a cache miss.
func (s *TrainedService) LoadHead(category Category, attribute string) (*AttributeHead, error) {
	key, err := cache.AttributeModelKey(string(category), attribute)
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(key); ok {
		if head, ok := v.(*AttributeHead); ok {
			return head, nil
		}
	}
	head, err := LoadHead(filepath.Join(s.modelsDir, string(category), attribute))
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, head)
	s.logger.Debug("loaded attribute model",
		zap.String("category", string(category)),
		zap.String("attribute", attribute),
		zap.Int("classes", head.NumClasses))
	return head, nil
}
