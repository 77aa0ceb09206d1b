package classify

import (
	"context"

	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// Source names the strategy that produced a Result.
type Source string

const (
	SourceTrained  Source = "trained"
	SourceZeroShot Source = "zero-shot"
)

// Result is the attribute classification for one image.
type Result struct {
	Category       Category   `json:"category"`
	Attributes     Attributes `json:"attributes"`
	Source         Source     `json:"source"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
}

// FellBack reports whether trained classification was requested but zero-shot answered.
func (r Result) FellBack() bool {
	return r.FallbackReason != ""
}

// AttributeClassifier applies the trained-then-zero-shot policy.
type AttributeClassifier struct {
	zeroShot *ZeroShotService
	trained  *TrainedService
	logger   *zap.Logger
}

// NewAttributeClassifier creates a classifier. trained may be nil, in which case every
// request is answered zero-shot.
func NewAttributeClassifier(zeroShot *ZeroShotService, trained *TrainedService, logger *zap.Logger) *AttributeClassifier {
	return &AttributeClassifier{zeroShot: zeroShot, trained: trained, logger: utils.OrNop(logger)}
}

// Classify predicts attributes for category. With useTrained the trained heads are tried
// first; any failure there falls back to zero-shot and is recorded in FallbackReason.
func (c *AttributeClassifier) Classify(ctx context.Context, path string, category Category, useTrained bool) (Result, error) {
	res := Result{Category: category}
	if useTrained {
		if c.trained == nil {
			res.FallbackReason = "trained models are not configured"
		} else if o := c.trained.Try(ctx, path, category); o.OK() {
			res.Attributes = o.Attributes
			res.Source = SourceTrained
			return res, nil
		} else {
			res.FallbackReason = o.Err.Error()
		}
		c.logger.Info("falling back to zero-shot classification",
			zap.String("category", string(category)),
			zap.String("reason", res.FallbackReason))
	}
	attrs, err := c.zeroShot.Classify(ctx, path, category)
	if err != nil {
		return Result{}, err
	}
	res.Attributes = attrs
	res.Source = SourceZeroShot
	return res, nil
}

// ProductResult combines the predicted category with its attributes.
type ProductResult struct {
	CategoryConfidence float32 `json:"category_confidence"`
	Result
}

// Service classifies a product end to end: category first, then its attributes.
type Service struct {
	categories *CategoryClassifier
	attributes *AttributeClassifier
}

// NewService creates a product classification service.
func NewService(categories *CategoryClassifier, attributes *AttributeClassifier) *Service {
	return &Service{categories: categories, attributes: attributes}
}

// Classify predicts the category of path and then its attributes.
func (s *Service) Classify(ctx context.Context, path string, useTrained bool) (ProductResult, error) {
	pred, err := s.categories.Classify(ctx, path)
	if err != nil {
		return ProductResult{}, err
	}
	category, err := ParseCategory(pred.Value)
	if err != nil {
		return ProductResult{}, err
	}
	res, err := s.attributes.Classify(ctx, path, category, useTrained)
	if err != nil {
		return ProductResult{}, err
	}
	return ProductResult{CategoryConfidence: pred.Confidence, Result: res}, nil
}
