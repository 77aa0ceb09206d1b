package classify

import (
	"context"
	"fmt"

	"github.com/hyperjump/katachi/internal/embedding"
)

// ZeroShotService predicts attributes by matching the image against the prompts of the
// category's schema.
type ZeroShotService struct {
	model Scorer
}

// NewZeroShotService creates a zero-shot attribute service.
func NewZeroShotService(model Scorer) *ZeroShotService {
	return &ZeroShotService{model: model}
}

// Classify returns the best prompt per attribute, with the template prefix stripped.
func (s *ZeroShotService) Classify(ctx context.Context, path string, category Category) (Attributes, error) {
	schema, err := Schema(category)
	if err != nil {
		return nil, fmt.Errorf("%w: no zero-shot labels defined for %q", err, category)
	}
	vec, err := s.model.EncodeImage(ctx, path, embedding.EncodeOptions{})
	if err != nil {
		return nil, err
	}
	out := make(Attributes, len(schema))
	for _, attr := range schema {
		scores, err := s.model.ScoreLabels(ctx, vec, attr.Prompts)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", attr.Name, err)
		}
		out[attr.Name] = Prediction{Value: StripPromptPrefix(scores[0].Label), Confidence: scores[0].Probability}
	}
	return out, nil
}
