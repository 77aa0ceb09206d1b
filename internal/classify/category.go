// Package classify predicts a product's category and its attributes, either zero-shot from
// text prompts or with trained linear heads, falling back from trained to zero-shot.
package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedCategory is returned for categories with no registered schema.
var ErrUnsupportedCategory = errors.New("category not supported")

// Category is a product category with a registered attribute schema.
type Category string

const (
	Shoe Category = "shoe"
	Bag  Category = "bag"
)

// Categories returns every registered category in a stable order.
func Categories() []Category {
	return []Category{Shoe, Bag}
}

// ParseCategory maps a user-supplied token to a registered Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := zeroShotSchema[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, s)
	}
	return c, nil
}

// Prediction is the winning value for one question and its softmax probability.
type Prediction struct {
	Value      string  `json:"value"`
	Confidence float32 `json:"confidence"`
}

// Attributes maps attribute name to its prediction.
type Attributes map[string]Prediction

// Names returns the attribute names in sorted order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var categoryLabels = []string{
	"a photo of a shoe",
	"a photo of a bag",
}

// CategoryClassifier decides whether an image shows a shoe or a bag.
type CategoryClassifier struct {
	model Scorer
}

// NewCategoryClassifier creates a category classifier over model.
func NewCategoryClassifier(model Scorer) *CategoryClassifier {
	return &CategoryClassifier{model: model}
}

// Classify returns the winning category token and its confidence.
func (c *CategoryClassifier) Classify(ctx context.Context, path string) (Prediction, error) {
	scores, err := c.model.ClassifyImage(ctx, path, categoryLabels)
	if err != nil {
		return Prediction{}, fmt.Errorf("classify category: %w", err)
	}
	best := scores[0]
	return Prediction{Value: StripPromptPrefix(best.Label), Confidence: best.Probability}, nil
}
