package imaging

import (
	"fmt"

	"github.com/hyperjump/katachi/internal/config"
	"go.uber.org/zap"
)

// Segmenter names accepted in configuration.
const (
	SegmenterU2Net = "u2net"
	SegmenterAlpha = "alpha"
)

// OptionsFromConfig converts preprocessing configuration to canvas options.
func OptionsFromConfig(cfg *config.PreprocessConfig) Options {
	return Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Padding:    cfg.PaddingFraction(),
		Background: cfg.Background(),
	}
}

// New selects the preprocessor once from configuration. When background removal is enabled
// and the segmenter cannot be constructed, New fails with ErrUnavailable instead of
// substituting the passthrough variant.
func New(cfg *config.PreprocessConfig, embCfg *config.EmbeddingConfig, logger *zap.Logger) (Preprocessor, error) {
	opts := OptionsFromConfig(cfg)
	if !cfg.BackgroundRemovalEnabled() {
		return NewPassthrough(opts), nil
	}
	var seg Segmenter
	switch cfg.Segmenter {
	case SegmenterAlpha:
		seg = AlphaSegmenter{}
	case SegmenterU2Net, "":
		u2, err := NewU2NetSegmenter(cfg.SegmenterModelPath, embCfg.RuntimeLibrary, embCfg.Device)
		if err != nil {
			return nil, fmt.Errorf("background removal is enabled but unavailable (set USE_BG_REMOVAL=false to disable): %w: %w", ErrUnavailable, err)
		}
		seg = u2
	default:
		return nil, fmt.Errorf("unknown segmenter %q (supported: u2net, alpha)", cfg.Segmenter)
	}
	if logger != nil {
		logger.Debug("preprocessor selected", zap.String("segmenter", seg.Name()), zap.Int("width", opts.Width), zap.Int("height", opts.Height))
	}
	return NewForegroundIsolating(opts, seg)
}

// Close releases the segmenter held by p, if any.
func Close(p Preprocessor) error {
	if f, ok := p.(*ForegroundIsolating); ok {
		return f.segmenter.Close()
	}
	return nil
}
