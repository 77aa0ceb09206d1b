package embedding

import (
	"image"

	"github.com/disintegration/imaging"
)

// CLIP image normalization constants.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// pixelValues converts img to a CHW float tensor of size x size, resizing the shorter side and
// center cropping when img is not already that size.
func pixelValues(img *image.NRGBA, size int) []float32 {
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		img = imaging.Fill(img, size, size, imaging.Center, imaging.CatmullRom)
	}
	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := img.Pix[img.PixOffset(img.Bounds().Min.X, img.Bounds().Min.Y+y):]
		for x := 0; x < size; x++ {
			p := row[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				out[c*plane+y*size+x] = (float32(p[c])/255 - clipMean[c]) / clipStd[c]
			}
		}
	}
	return out
}
