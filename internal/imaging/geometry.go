package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// AlphaThreshold is the alpha value a pixel must exceed to count as foreground.
const AlphaThreshold = 10

// opaque copies img and discards its alpha channel, keeping the stored color of
// transparent pixels.
func opaque(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

// padToSquare centers img on a square background canvas whose side is the longer edge.
// Transparent pixels of img show the background.
func padToSquare(img image.Image, bg color.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	size := w
	if h > size {
		size = h
	}
	canvas := imaging.New(size, size, bg)
	return imaging.Overlay(canvas, img, image.Pt((size-w)/2, (size-h)/2), 1.0)
}

// resizeOpaque resamples to width x height with a Lanczos filter and pins alpha to 255.
func resizeOpaque(img image.Image, width, height int) *image.NRGBA {
	out := imaging.Resize(img, width, height, imaging.Lanczos)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

// foregroundBounds returns the bounding box of pixels with alpha > threshold, in img's
// coordinate space. ok is false when no pixel qualifies.
func foregroundBounds(img *image.NRGBA, threshold uint8) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] <= threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// expandClamped grows r by frac of its extent on each side, clamped to bounds.
func expandClamped(r image.Rectangle, frac float64, bounds image.Rectangle) image.Rectangle {
	padX := int(float64(r.Dx()) * frac)
	padY := int(float64(r.Dy()) * frac)
	return image.Rect(r.Min.X-padX, r.Min.Y-padY, r.Max.X+padX, r.Max.Y+padY).Intersect(bounds)
}

// cropToForeground crops img to its alpha foreground plus padding. Images with no foreground
// are returned unchanged.
func cropToForeground(img *image.NRGBA, frac float64) *image.NRGBA {
	fg, ok := foregroundBounds(img, AlphaThreshold)
	if !ok {
		return img
	}
	return imaging.Crop(img, expandClamped(fg, frac, img.Bounds()))
}
