package imaging

import (
	"context"
	"image"
)

// Passthrough drops alpha, pads to square without distortion and resizes. It has no external
// dependencies and never fails on a decodable image.
type Passthrough struct {
	opts Options
}

// NewPassthrough creates a passthrough preprocessor.
func NewPassthrough(opts Options) *Passthrough {
	return &Passthrough{opts: opts.normalized()}
}

// Preprocess returns img centered on a square background canvas, resized to Size().
func (p *Passthrough) Preprocess(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrMalformedInput
	}
	square := padToSquare(opaque(img), p.opts.Background)
	return resizeOpaque(square, p.opts.Width, p.opts.Height), nil
}

// Size returns the output dimensions.
func (p *Passthrough) Size() (int, int) {
	return p.opts.Width, p.opts.Height
}

// Name identifies the preprocessor in logs.
func (p *Passthrough) Name() string {
	return "passthrough"
}
