//go:build cgo
// +build cgo

package imaging

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/hyperjump/katachi/internal/onnxrt"
	ort "github.com/yalue/onnxruntime_go"
)

const u2netSize = 320

var (
	u2netMean = [3]float32{0.485, 0.456, 0.406}
	u2netStd  = [3]float32{0.229, 0.224, 0.225}
)

// U2NetSegmenter runs a U²-Net salient object model (the rembg "u2net.onnx" export) to
// produce a foreground alpha mask.
type U2NetSegmenter struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

// NewU2NetSegmenter loads the model at modelPath. device is passed to the runtime ("cpu", "cuda").
func NewU2NetSegmenter(modelPath, libraryPath, device string) (*U2NetSegmenter, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("segmentation model %s: %w", modelPath, err)
	}
	if err := onnxrt.Init(libraryPath); err != nil {
		return nil, err
	}
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect segmentation model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("segmentation model has no inputs or outputs")
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, u2netSize, u2netSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, u2netSize, u2netSize))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	opts, err := onnxrt.NewSessionOptions(device)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer opts.Destroy()
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &U2NetSegmenter{session: session, input: input, output: output}, nil
}

// Segment predicts a saliency mask and applies it as the alpha channel of a copy of img.
func (s *U2NetSegmenter) Segment(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	small := imaging.Resize(img, u2netSize, u2netSize, imaging.Lanczos)

	s.mu.Lock()
	defer s.mu.Unlock()

	fillU2NetInput(s.input.GetData(), small)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("segmentation inference failed: %w", err)
	}
	mask := maskImage(s.output.GetData(), u2netSize)
	mask = imaging.Resize(mask, b.Dx(), b.Dy(), imaging.Lanczos)

	out := imaging.Clone(img)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[out.PixOffset(x, y)+3] = mask.Pix[mask.PixOffset(x, y)]
		}
	}
	return out, nil
}

// fillU2NetInput writes CHW pixels scaled by the image maximum then standardized.
func fillU2NetInput(dst []float32, img *image.NRGBA) {
	var maxVal uint8 = 1
	for i, v := range img.Pix {
		if i%4 != 3 && v > maxVal {
			maxVal = v
		}
	}
	plane := u2netSize * u2netSize
	for y := 0; y < u2netSize; y++ {
		for x := 0; x < u2netSize; x++ {
			off := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float32(img.Pix[off+c]) / float32(maxVal)
				dst[c*plane+y*u2netSize+x] = (v - u2netMean[c]) / u2netStd[c]
			}
		}
	}
}

// maskImage min-max normalizes the prediction into a grayscale NRGBA (value in every channel).
func maskImage(pred []float32, size int) *image.NRGBA {
	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, v := range pred[:size*size] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < size*size; i++ {
		var v float32
		if span > 0 {
			v = (pred[i] - lo) / span
		}
		g := uint8(v*255 + 0.5)
		out.Pix[i*4], out.Pix[i*4+1], out.Pix[i*4+2], out.Pix[i*4+3] = g, g, g, 255
	}
	return out
}

// Name identifies the segmenter in logs.
func (s *U2NetSegmenter) Name() string { return "u2net" }

// Close destroys the session and tensors.
func (s *U2NetSegmenter) Close() error {
	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	if s.input != nil {
		_ = s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		_ = s.output.Destroy()
		s.output = nil
	}
	return err
}
