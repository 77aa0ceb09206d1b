package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	// Extra decoders for catalog photos; png, jpeg and gif come from imaging's own imports.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Open decodes the image at path, applying EXIF orientation. Missing or undecodable files
// return an error wrapping ErrMalformedInput.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	return img, nil
}

// Save encodes img to path; the format follows the file extension. Parent directories are created.
func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save image %s: %w", path, err)
	}
	return nil
}

// PreprocessedName returns the file name used when persisting the preprocessed form of path.
// Extensions imaging cannot encode are replaced with .png.
func PreprocessedName(path string) string {
	base := filepath.Base(path)
	if _, err := imaging.FormatFromFilename(base); err != nil {
		base = base[:len(base)-len(filepath.Ext(base))] + ".png"
	}
	return "pre_" + base
}

// ToNRGBA returns an NRGBA copy of img with bounds starting at (0, 0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Describe reads the header of the image at path and returns its format name and size
// without decoding the pixels.
func Describe(path string) (format string, width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	return format, cfg.Width, cfg.Height, nil
}
