package classify

import (
	"context"
	"strings"

	"github.com/hyperjump/katachi/internal/embedding"
)

// Scorer is the part of the embedding model the classifiers use.
type Scorer interface {
	EncodeImage(ctx context.Context, path string, opts embedding.EncodeOptions) ([]float32, error)
	ClassifyImage(ctx context.Context, path string, labels []string) ([]embedding.LabelScore, error)
	ScoreLabels(ctx context.Context, imgVec []float32, labels []string) ([]embedding.LabelScore, error)
}

// AttributePrompts is one attribute and the prompts describing its possible values.
type AttributePrompts struct {
	Name    string
	Prompts []string
}

var zeroShotSchema = map[Category][]AttributePrompts{
	Shoe: {
		{Name: "type", Prompts: []string{
			"a photo of a sneaker",
			"a photo of a boot",
			"a photo of a loafer",
			"a photo of a sandal",
		}},
		{Name: "color", Prompts: []string{
			"a photo of a black shoe",
			"a photo of a white shoe",
			"a photo of a red shoe",
			"a photo of a blue shoe",
			"a photo of a brown shoe",
			"a photo of a gray shoe",
			"a photo of a green shoe",
		}},
		{Name: "gender", Prompts: []string{
			"a photo of a men's shoe",
			"a photo of a women's shoe",
			"a photo of a unisex shoe",
		}},
		{Name: "age_group", Prompts: []string{
			"a photo of an adult shoe",
			"a photo of a kid's shoe",
		}},
	},
	Bag: {
		{Name: "type", Prompts: []string{
			"a photo of a backpack",
			"a photo of a handbag",
			"a photo of a tote bag",
			"a photo of a clutch",
		}},
		{Name: "color", Prompts: []string{
			"a photo of a black bag",
			"a photo of a white bag",
			"a photo of a red bag",
			"a photo of a blue bag",
			"a photo of a brown bag",
		}},
		{Name: "style", Prompts: []string{
			"a photo of a casual bag",
			"a photo of a formal bag",
		}},
	},
}

// Schema returns the zero-shot attribute prompts for category.
func Schema(category Category) ([]AttributePrompts, error) {
	s, ok := zeroShotSchema[category]
	if !ok {
		return nil, ErrUnsupportedCategory
	}
	return s, nil
}

// StripPromptPrefix removes the "a photo of a(n) " prompt template from label.
func StripPromptPrefix(label string) string {
	for _, prefix := range []string{"a photo of an ", "a photo of a "} {
		if strings.HasPrefix(label, prefix) {
			return strings.TrimPrefix(label, prefix)
		}
	}
	return label
}
