package embedding

import (
	"context"
	"image"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

const mockThumb = 8

// MockBackend is a deterministic backend for tests and for machines without ONNX Runtime.
// Image features are a fixed random projection of an 8x8 thumbnail, so identical images get
// identical vectors and similar images get nearby ones. Text features are derived from the
// text hash so that the same label always gets the same embedding.
type MockBackend struct {
	dimensions int
	projection [][]float32
}

// NewMockBackend returns a backend that produces deterministic embeddings of the given dimensions.
func NewMockBackend(dimensions int) *MockBackend {
	if dimensions <= 0 {
		dimensions = 512
	}
	rng := rand.New(rand.NewSource(42))
	in := mockThumb * mockThumb * 3
	proj := make([][]float32, dimensions)
	for i := range proj {
		proj[i] = make([]float32, in)
		for j := range proj[i] {
			proj[i][j] = float32(rng.NormFloat64())
		}
	}
	return &MockBackend{dimensions: dimensions, projection: proj}
}

// ImageFeatures projects a centered thumbnail of img.
func (b *MockBackend) ImageFeatures(ctx context.Context, img *image.NRGBA) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, mockThumb, mockThumb, imaging.Box)
	x := make([]float32, 0, mockThumb*mockThumb*3)
	for i := 0; i < len(thumb.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			x = append(x, float32(thumb.Pix[i+c])/255-0.5)
		}
	}
	out := make([]float32, b.dimensions)
	for i, row := range b.projection {
		var sum float32
		for j, w := range row {
			sum += w * x[j]
		}
		out[i] = sum
	}
	return out, nil
}

// TextFeatures returns a hash-derived vector per text.
func (b *MockBackend) TextFeatures(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := float64(HashString(text))
		emb := make([]float32, b.dimensions)
		for d := 0; d < b.dimensions; d++ {
			emb[d] = float32(math.Sin(h*float64(d+1))*0.1 + 0.01)
		}
		out[i] = emb
	}
	return out, nil
}

// LogitScale returns DefaultLogitScale.
func (b *MockBackend) LogitScale() float32 {
	return DefaultLogitScale
}

// Dimensions returns the embedding dimension.
func (b *MockBackend) Dimensions() int {
	return b.dimensions
}

// Name identifies the backend.
func (b *MockBackend) Name() string {
	return "mock"
}

// Close is a no-op for MockBackend.
func (b *MockBackend) Close() error {
	return nil
}
