// Package embedding turns product images into unit-norm feature vectors and scores them
// against text labels with a CLIP-style vision-language backend.
package embedding

import (
	"context"
	"image"
)

// DefaultLogitScale is CLIP's learned temperature, exp(4.6052).
const DefaultLogitScale = 100

// Backend is a vision-language encoder pair sharing one embedding space.
type Backend interface {
	// ImageFeatures returns the raw (unnormalized) image embedding.
	ImageFeatures(ctx context.Context, img *image.NRGBA) ([]float32, error)
	// TextFeatures returns one raw embedding per text, in order.
	TextFeatures(ctx context.Context, texts []string) ([][]float32, error)
	LogitScale() float32
	Dimensions() int
	Name() string
	Close() error
}

// LabelScore is one label with its softmax probability.
type LabelScore struct {
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// EncodeOptions controls the optional preprocessing side effect of EncodeImage.
type EncodeOptions struct {
	SavePreprocessed bool
	SaveDir          string
}
