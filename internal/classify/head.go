package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/katachi/pkg/utils"
	"github.com/kshedden/gonpy"
	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
)

// Files making up a trained attribute head. ModelFile is a torch state_dict
// and takes precedence; the .npy pair is what SaveHead writes.
const (
	ModelFile   = "model.pt"
	WeightFile  = "weight.npy"
	BiasFile    = "bias.npy"
	ClassesFile = "classes.json"
)

// AttributeHead is a linear classifier over frozen image embeddings: logits = W·x + b.
type AttributeHead struct {
	EmbeddingDim int
	NumClasses   int
	Weight       [][]float32 // [NumClasses][EmbeddingDim]
	Bias         []float32
	Classes      map[int]string
}

// ApproxSize reports the head's memory footprint for cache accounting.
func (h *AttributeHead) ApproxSize() int64 {
	size := int64(h.NumClasses*h.EmbeddingDim+len(h.Bias)) * 4
	for _, name := range h.Classes {
		size += int64(len(name)) + 8
	}
	return size
}

// Predict returns the most probable class name and its softmax probability.
func (h *AttributeHead) Predict(x []float32) (Prediction, error) {
	if len(x) != h.EmbeddingDim {
		return Prediction{}, fmt.Errorf("embedding has %d dimensions, head expects %d", len(x), h.EmbeddingDim)
	}
	logits := make([]float32, h.NumClasses)
	for c, row := range h.Weight {
		logits[c] = utils.Dot(row, x) + h.Bias[c]
	}
	probs := utils.Softmax(logits)
	best := utils.Argmax(probs)
	name, ok := h.Classes[best]
	if !ok {
		name = strconv.Itoa(best)
	}
	return Prediction{Value: name, Confidence: probs[best]}, nil
}

// State-dict keys of the linear layer saved in ModelFile.
const (
	weightKey = "classifier.weight"
	biasKey   = "classifier.bias"
)

type tensor struct {
	data  []float32
	shape []int
}

// LoadHead reads a head from dir. Shape and class-count mismatches are errors.
func LoadHead(dir string) (*AttributeHead, error) {
	weight, bias, err := readParams(dir)
	if err != nil {
		return nil, err
	}
	shape, bshape := weight.shape, bias.shape
	if len(shape) != 2 || shape[0] == 0 || shape[1] == 0 {
		return nil, fmt.Errorf("weight has shape %v, want [classes, dim]", shape)
	}
	numClasses, dim := shape[0], shape[1]
	if len(bshape) != 1 || bshape[0] != numClasses {
		return nil, fmt.Errorf("bias has shape %v, want [%d]", bshape, numClasses)
	}
	classes, err := readClasses(filepath.Join(dir, ClassesFile))
	if err != nil {
		return nil, err
	}
	if len(classes) != numClasses {
		return nil, fmt.Errorf("%s lists %d classes, weights have %d", ClassesFile, len(classes), numClasses)
	}

	w := make([][]float32, numClasses)
	for c := range w {
		w[c] = weight.data[c*dim : (c+1)*dim]
	}
	return &AttributeHead{
		EmbeddingDim: dim,
		NumClasses:   numClasses,
		Weight:       w,
		Bias:         bias.data,
		Classes:      classes,
	}, nil
}

func readParams(dir string) (weight, bias tensor, err error) {
	model := filepath.Join(dir, ModelFile)
	if _, statErr := os.Stat(model); statErr == nil {
		return readStateDict(model)
	}
	if weight.data, weight.shape, err = readFloat32(filepath.Join(dir, WeightFile)); err != nil {
		return tensor{}, tensor{}, err
	}
	if bias.data, bias.shape, err = readFloat32(filepath.Join(dir, BiasFile)); err != nil {
		return tensor{}, tensor{}, err
	}
	return weight, bias, nil
}

// readStateDict pulls the classifier tensors out of a torch.save'd state_dict.
func readStateDict(path string) (weight, bias tensor, err error) {
	obj, err := pytorch.Load(path)
	if err != nil {
		return tensor{}, tensor{}, fmt.Errorf("load %s: %w", ModelFile, err)
	}
	dict, ok := obj.(*types.OrderedDict)
	if !ok {
		return tensor{}, tensor{}, fmt.Errorf("%s holds %T, want a state_dict", ModelFile, obj)
	}
	if weight, err = stateTensor(dict, weightKey); err != nil {
		return tensor{}, tensor{}, err
	}
	if bias, err = stateTensor(dict, biasKey); err != nil {
		return tensor{}, tensor{}, err
	}
	return weight, bias, nil
}

func stateTensor(dict *types.OrderedDict, key string) (tensor, error) {
	v, ok := dict.Get(key)
	if !ok {
		return tensor{}, fmt.Errorf("%s has no %q entry", ModelFile, key)
	}
	t, ok := v.(*pytorch.Tensor)
	if !ok {
		return tensor{}, fmt.Errorf("%s: %q is %T, want a tensor", ModelFile, key, v)
	}
	n, step := 1, 1
	for i := len(t.Size) - 1; i >= 0; i-- {
		if t.Size[i] > 1 && t.Stride[i] != step {
			return tensor{}, fmt.Errorf("%s: %q is not contiguous", ModelFile, key)
		}
		step *= t.Size[i]
		n *= t.Size[i]
	}
	start, end := t.StorageOffset, t.StorageOffset+n
	data := make([]float32, n)
	switch s := t.Source.(type) {
	case *pytorch.FloatStorage:
		if end > len(s.Data) {
			return tensor{}, fmt.Errorf("%s: %q overruns its storage", ModelFile, key)
		}
		copy(data, s.Data[start:end])
	case *pytorch.DoubleStorage:
		if end > len(s.Data) {
			return tensor{}, fmt.Errorf("%s: %q overruns its storage", ModelFile, key)
		}
		for i, x := range s.Data[start:end] {
			data[i] = float32(x)
		}
	default:
		return tensor{}, fmt.Errorf("%s: %q has %T storage, want float", ModelFile, key, t.Source)
	}
	shape := append([]int(nil), t.Size...)
	return tensor{data: data, shape: shape}, nil
}

// SaveHead writes h to dir in the layout LoadHead reads.
func SaveHead(dir string, h *AttributeHead) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create head dir: %w", err)
	}
	flat := make([]float32, 0, h.NumClasses*h.EmbeddingDim)
	for _, row := range h.Weight {
		flat = append(flat, row...)
	}
	if err := writeFloat32(filepath.Join(dir, WeightFile), []int{h.NumClasses, h.EmbeddingDim}, flat); err != nil {
		return err
	}
	if err := writeFloat32(filepath.Join(dir, BiasFile), []int{h.NumClasses}, h.Bias); err != nil {
		return err
	}
	named := make(map[string]string, len(h.Classes))
	for i, name := range h.Classes {
		named[strconv.Itoa(i)] = name
	}
	data, err := json.MarshalIndent(named, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal classes: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ClassesFile), data, 0644)
}

func readFloat32(path string) ([]float32, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	r, err := gonpy.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	if r.ColumnMajor {
		return nil, nil, fmt.Errorf("%s is Fortran ordered", filepath.Base(path))
	}
	var data []float32
	switch strings.TrimLeft(r.Dtype, "<>|=") {
	case "f4":
		data, err = r.GetFloat32()
	case "f8":
		var wide []float64
		wide, err = r.GetFloat64()
		data = make([]float32, len(wide))
		for i, v := range wide {
			data[i] = float32(v)
		}
	default:
		return nil, nil, fmt.Errorf("%s has dtype %s, want float", filepath.Base(path), r.Dtype)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, r.Shape, nil
}

func writeFloat32(path string, shape []int, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w, err := gonpy.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("open %s writer: %w", filepath.Base(path), err)
	}
	w.Shape = shape
	return w.WriteFloat32(data)
}

// readClasses parses {"0": "sneaker", "1": "boot"}.
func readClasses(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ClassesFile, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ClassesFile, err)
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%s: bad class index %q", ClassesFile, k)
		}
		out[i] = v
	}
	for i := 0; i < len(out); i++ {
		if _, ok := out[i]; !ok {
			return nil, errors.New(ClassesFile + ": class indices are not contiguous from 0")
		}
	}
	return out, nil
}
