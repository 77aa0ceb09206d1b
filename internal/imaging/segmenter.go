package imaging

import (
	"context"
	"image"
)

// Segmenter separates a product from its background. It returns a copy of img whose alpha
// channel is the foreground mask (0 = background).
type Segmenter interface {
	Segment(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error)
	Name() string
	Close() error
}

// AlphaSegmenter trusts the alpha channel already present in the image, as with catalog
// cut-outs exported on a transparent background. Opaque images come back fully foreground.
type AlphaSegmenter struct{}

// Segment returns img unchanged.
func (AlphaSegmenter) Segment(_ context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	return img, nil
}

// Name identifies the segmenter in logs.
func (AlphaSegmenter) Name() string { return "alpha" }

// Close is a no-op.
func (AlphaSegmenter) Close() error { return nil }
