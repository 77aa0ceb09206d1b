// Package imaging normalizes product photos into square, opaque canvases ready for embedding.
package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
)

var (
	// ErrUnavailable is returned when a configured capability (such as background removal)
	// cannot run in this environment.
	ErrUnavailable = errors.New("capability unavailable")
	// ErrMalformedInput is returned for unreadable or undecodable images.
	ErrMalformedInput = errors.New("malformed image input")
)

// Preprocessor converts an arbitrary image into an opaque image of exactly Size().
type Preprocessor interface {
	Preprocess(ctx context.Context, img image.Image) (*image.NRGBA, error)
	Size() (width, height int)
	Name() string
}

// Options holds the canvas geometry shared by all preprocessors.
type Options struct {
	Width      int
	Height     int
	Padding    float64 // fraction of the foreground extent added on each side when cropping
	Background color.NRGBA
}

// DefaultOptions returns 224x224 on white with 10% padding.
func DefaultOptions() Options {
	return Options{
		Width:      224,
		Height:     224,
		Padding:    0.1,
		Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	o.Background.A = 255
	return o
}

// PreprocessBatch applies p to each image in order. The result has the same length and order as imgs.
func PreprocessBatch(ctx context.Context, p Preprocessor, imgs []image.Image) ([]*image.NRGBA, error) {
	out := make([]*image.NRGBA, len(imgs))
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.Preprocess(ctx, img)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}
