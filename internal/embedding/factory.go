package embedding

import (
	"fmt"
	"strings"

	"github.com/hyperjump/katachi/internal/config"
	"github.com/hyperjump/katachi/internal/imaging"
	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// MockModelName selects the deterministic backend in configuration.
const MockModelName = "mock"

// NewBackend returns the backend described by cfg. The mock backend is used only when
// cfg.Model is "mock"; a CLIP model that cannot be loaded (no model files, no CGO, no
// onnxruntime) fails with imaging.ErrUnavailable.
func NewBackend(cfg *config.EmbeddingConfig, logger *zap.Logger) (Backend, error) {
	logger = utils.OrNop(logger)
	if strings.EqualFold(cfg.Model, MockModelName) {
		logger.Debug("using mock embeddings", zap.Int("dimensions", cfg.Dimensions))
		return NewMockBackend(cfg.Dimensions), nil
	}
	clip, err := NewCLIPBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding model %s could not be loaded (set embedding.model to %q for test embeddings): %w: %w",
			cfg.Model, MockModelName, imaging.ErrUnavailable, err)
	}
	logger.Debug("CLIP backend loaded", zap.String("model", cfg.Model), zap.String("device", cfg.Device))
	return clip, nil
}
