//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"

	"github.com/hyperjump/katachi/internal/config"
	"go.uber.org/zap"
)

var errCLIPUnavailable = errors.New("CLIP backend requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// CLIPBackend stub type when built without CGO (see clip.go for real implementation).
type CLIPBackend struct{}

// NewCLIPBackend returns an error when built without CGO (ONNX not available).
func NewCLIPBackend(_ *config.EmbeddingConfig, _ *zap.Logger) (*CLIPBackend, error) {
	return nil, errCLIPUnavailable
}

func (b *CLIPBackend) ImageFeatures(context.Context, *image.NRGBA) ([]float32, error) {
	return nil, errCLIPUnavailable
}

func (b *CLIPBackend) TextFeatures(context.Context, []string) ([][]float32, error) {
	return nil, errCLIPUnavailable
}

func (b *CLIPBackend) LogitScale() float32 { return DefaultLogitScale }
func (b *CLIPBackend) Dimensions() int     { return 0 }
func (b *CLIPBackend) Name() string        { return "clip" }
func (b *CLIPBackend) Close() error        { return nil }
