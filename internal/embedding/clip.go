//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/hyperjump/katachi/internal/config"
	"github.com/hyperjump/katachi/internal/onnxrt"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

const clipImageSize = 224

// CLIPBackend runs the vision and text towers of a CLIP ONNX export (requires CGO and the
// onnxruntime library). Both sessions use pre-allocated tensors and are serialized by mu.
type CLIPBackend struct {
	name          string
	dimensions    int
	contextLength int
	tokenizer     Tokenizer

	vision      *ort.AdvancedSession
	pixelTensor *ort.Tensor[float32]
	imageOut    *ort.Tensor[float32]
	text        *ort.AdvancedSession
	idsTensor   *ort.Tensor[int64]
	maskTensor  *ort.Tensor[int64]
	textOut     *ort.Tensor[float32]
	tensors     []ort.ArbitraryTensor
	mu          sync.Mutex
}

// NewCLIPBackend loads the vision and text models named in cfg.
func NewCLIPBackend(cfg *config.EmbeddingConfig, logger *zap.Logger) (*CLIPBackend, error) {
	for _, p := range []string{cfg.VisionModelPath, cfg.TextModelPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("CLIP model %s: %w", p, err)
		}
	}
	if err := onnxrt.Init(cfg.RuntimeLibrary); err != nil {
		return nil, err
	}

	var tok Tokenizer
	hf, err := NewHFTokenizer(cfg.TokenizerPath)
	if err != nil {
		if logger != nil {
			logger.Warn("tokenizer.json unavailable, using simple tokenizer", zap.Error(err))
		}
		tok = &SimpleTokenizer{}
	} else {
		tok = hf
	}

	b := &CLIPBackend{
		name:          cfg.Model,
		dimensions:    cfg.Dimensions,
		contextLength: cfg.ContextLength,
		tokenizer:     tok,
	}
	if err := b.initVision(cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.initText(cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *CLIPBackend) newTensors() error {
	var err error
	if b.pixelTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, clipImageSize, clipImageSize)); err != nil {
		return fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	b.tensors = append(b.tensors, b.pixelTensor)
	if b.imageOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(b.dimensions))); err != nil {
		return fmt.Errorf("failed to create image output tensor: %w", err)
	}
	b.tensors = append(b.tensors, b.imageOut)
	if b.idsTensor, err = ort.NewEmptyTensor[int64](ort.NewShape(1, int64(b.contextLength))); err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	b.tensors = append(b.tensors, b.idsTensor)
	if b.maskTensor, err = ort.NewEmptyTensor[int64](ort.NewShape(1, int64(b.contextLength))); err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	b.tensors = append(b.tensors, b.maskTensor)
	if b.textOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(b.dimensions))); err != nil {
		return fmt.Errorf("failed to create text output tensor: %w", err)
	}
	b.tensors = append(b.tensors, b.textOut)
	return nil
}

func (b *CLIPBackend) initVision(cfg *config.EmbeddingConfig) error {
	if b.pixelTensor == nil {
		if err := b.newTensors(); err != nil {
			return err
		}
	}
	_, outputs, err := ort.GetInputOutputInfo(cfg.VisionModelPath)
	if err != nil {
		return fmt.Errorf("inspect vision model: %w", err)
	}
	opts, err := onnxrt.NewSessionOptions(cfg.Device)
	if err != nil {
		return err
	}
	defer opts.Destroy()
	b.vision, err = ort.NewAdvancedSession(
		cfg.VisionModelPath,
		[]string{"pixel_values"},
		[]string{pickOutput(outputs, "image_embeds")},
		[]ort.ArbitraryTensor{b.pixelTensor},
		[]ort.ArbitraryTensor{b.imageOut},
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to create vision session: %w", err)
	}
	return nil
}

func (b *CLIPBackend) initText(cfg *config.EmbeddingConfig) error {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.TextModelPath)
	if err != nil {
		return fmt.Errorf("inspect text model: %w", err)
	}
	inNames := []string{"input_ids"}
	inTensors := []ort.ArbitraryTensor{b.idsTensor}
	for _, in := range inputs {
		if in.Name == "attention_mask" {
			inNames = append(inNames, "attention_mask")
			inTensors = append(inTensors, b.maskTensor)
		}
	}
	opts, err := onnxrt.NewSessionOptions(cfg.Device)
	if err != nil {
		return err
	}
	defer opts.Destroy()
	b.text, err = ort.NewAdvancedSession(
		cfg.TextModelPath,
		inNames,
		[]string{pickOutput(outputs, "text_embeds")},
		inTensors,
		[]ort.ArbitraryTensor{b.textOut},
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to create text session: %w", err)
	}
	return nil
}

// pickOutput returns preferred if the model has an output of that name, else the first output.
func pickOutput(outputs []ort.InputOutputInfo, preferred string) string {
	for _, o := range outputs {
		if o.Name == preferred {
			return preferred
		}
	}
	if len(outputs) > 0 {
		return outputs[0].Name
	}
	return preferred
}

// ImageFeatures runs the vision tower on img.
func (b *CLIPBackend) ImageFeatures(ctx context.Context, img *image.NRGBA) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pixels := pixelValues(img, clipImageSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.pixelTensor.GetData(), pixels)
	if err := b.vision.Run(); err != nil {
		return nil, fmt.Errorf("vision inference failed: %w", err)
	}
	out := make([]float32, b.dimensions)
	copy(out, b.imageOut.GetData())
	return out, nil
}

// TextFeatures runs the text tower once per text.
func (b *CLIPBackend) TextFeatures(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, mask, err := b.tokenizer.Tokenize(text, b.contextLength)
		if err != nil {
			return nil, err
		}
		vec, err := b.runText(ids, mask)
		if err != nil {
			return nil, fmt.Errorf("text inference for %q: %w", text, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (b *CLIPBackend) runText(ids, mask []int64) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.idsTensor.GetData(), ids)
	copy(b.maskTensor.GetData(), mask)
	if err := b.text.Run(); err != nil {
		return nil, err
	}
	vec := make([]float32, b.dimensions)
	copy(vec, b.textOut.GetData())
	return vec, nil
}

// LogitScale returns CLIP's fixed temperature.
func (b *CLIPBackend) LogitScale() float32 {
	return DefaultLogitScale
}

// Dimensions returns the embedding dimension.
func (b *CLIPBackend) Dimensions() int {
	return b.dimensions
}

// Name returns the configured model identifier.
func (b *CLIPBackend) Name() string {
	return b.name
}

// Close destroys the sessions and tensors.
func (b *CLIPBackend) Close() error {
	var err error
	if b.vision != nil {
		err = b.vision.Destroy()
		b.vision = nil
	}
	if b.text != nil {
		if e := b.text.Destroy(); e != nil && err == nil {
			err = e
		}
		b.text = nil
	}
	for _, t := range b.tensors {
		_ = t.Destroy()
	}
	b.tensors = nil
	return err
}
