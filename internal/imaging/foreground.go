package imaging

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ForegroundIsolating removes the background with a Segmenter, crops to the product with
// padding, and centers it on an opaque square canvas.
type ForegroundIsolating struct {
	opts      Options
	segmenter Segmenter
}

// NewForegroundIsolating creates a foreground-isolating preprocessor. segmenter must be non-nil.
func NewForegroundIsolating(opts Options, segmenter Segmenter) (*ForegroundIsolating, error) {
	if segmenter == nil {
		return nil, fmt.Errorf("foreground isolation needs a segmenter: %w", ErrUnavailable)
	}
	return &ForegroundIsolating{opts: opts.normalized(), segmenter: segmenter}, nil
}

// Preprocess isolates the foreground and returns an opaque image of Size(). When the
// segmentation mask is empty the whole image is used.
func (p *ForegroundIsolating) Preprocess(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrMalformedInput
	}
	cutout, err := p.segmenter.Segment(ctx, imaging.Clone(img))
	if err != nil {
		return nil, fmt.Errorf("segment foreground: %w", err)
	}
	if !hasForeground(cutout) {
		// Nothing segmented: keep the original pixels rather than an all-background canvas.
		cutout = opaque(img)
	}
	cropped := cropToForeground(cutout, p.opts.Padding)
	square := padToSquare(cropped, p.opts.Background)
	return resizeOpaque(square, p.opts.Width, p.opts.Height), nil
}

func hasForeground(img *image.NRGBA) bool {
	_, ok := foregroundBounds(img, AlphaThreshold)
	return ok
}

// Size returns the output dimensions.
func (p *ForegroundIsolating) Size() (int, int) {
	return p.opts.Width, p.opts.Height
}

// Name identifies the preprocessor in logs.
func (p *ForegroundIsolating) Name() string {
	return "foreground:" + p.segmenter.Name()
}
