package embedding

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sort"

	"github.com/hyperjump/katachi/internal/imaging"
	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoLabels is returned by ClassifyImage when called with an empty label list.
var ErrNoLabels = errors.New("no labels to score")

// Model is the embedding model used by every service: it loads an image, runs the configured
// preprocessor and feeds the result to the backend.
type Model struct {
	backend      Backend
	preprocessor imaging.Preprocessor
	textCache    *labelCache
	logger       *zap.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		m.logger = utils.OrNop(l)
	}
}

// WithTextCacheSize sets the number of label embeddings kept in memory.
func WithTextCacheSize(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.textCache = newLabelCache(n)
		}
	}
}

// NewModel creates a model over backend. preprocessor may be nil, in which case images are
// only resized by the backend.
func NewModel(backend Backend, preprocessor imaging.Preprocessor, opts ...Option) *Model {
	m := &Model{
		backend:      backend,
		preprocessor: preprocessor,
		textCache:    newLabelCache(1024),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EncodeImage returns the L2-normalized embedding of the image at path.
func (m *Model) EncodeImage(ctx context.Context, path string, opts EncodeOptions) ([]float32, error) {
	img, err := m.prepare(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	raw, err := m.backend.ImageFeatures(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("image features for %s: %w", path, err)
	}
	vec := make([]float32, len(raw))
	copy(vec, raw)
	utils.NormalizeL2(vec)
	return vec, nil
}

// ClassifyImage scores the image at path against labels and returns every label sorted by
// descending probability; ties keep the order of labels. Probabilities sum to 1.
func (m *Model) ClassifyImage(ctx context.Context, path string, labels []string) ([]LabelScore, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	imgVec, err := m.EncodeImage(ctx, path, EncodeOptions{})
	if err != nil {
		return nil, err
	}
	return m.ScoreLabels(ctx, imgVec, labels)
}

// ScoreLabels ranks labels against an already normalized image embedding.
func (m *Model) ScoreLabels(ctx context.Context, imgVec []float32, labels []string) ([]LabelScore, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	textVecs, err := m.textFeatures(ctx, labels)
	if err != nil {
		return nil, err
	}
	scale := m.backend.LogitScale()
	logits := make([]float32, len(labels))
	for i, tv := range textVecs {
		if len(tv) != len(imgVec) {
			return nil, fmt.Errorf("text embedding dimension %d does not match image dimension %d", len(tv), len(imgVec))
		}
		logits[i] = scale * utils.Dot(imgVec, tv)
	}
	probs := utils.Softmax(logits)

	scores := make([]LabelScore, len(labels))
	for i, label := range labels {
		scores[i] = LabelScore{Label: label, Probability: probs[i]}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	return scores, nil
}

// textFeatures returns normalized label embeddings, computing only the ones not cached.
func (m *Model) textFeatures(ctx context.Context, labels []string) ([][]float32, error) {
	out, missingIdx := m.textCache.lookup(labels)
	if len(missingIdx) == 0 {
		return out, nil
	}
	missing := make([]string, len(missingIdx))
	for j, i := range missingIdx {
		missing[j] = labels[i]
	}
	raw, err := m.backend.TextFeatures(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("text features: %w", err)
	}
	if len(raw) != len(missing) {
		return nil, fmt.Errorf("backend returned %d text embeddings for %d labels", len(raw), len(missing))
	}
	for j, v := range raw {
		vec := make([]float32, len(v))
		copy(vec, v)
		utils.NormalizeL2(vec)
		m.textCache.add(missing[j], vec)
		out[missingIdx[j]] = vec
	}
	return out, nil
}

func (m *Model) prepare(ctx context.Context, path string, opts EncodeOptions) (*image.NRGBA, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	if m.preprocessor == nil {
		return imaging.ToNRGBA(src), nil
	}
	img, err := m.preprocessor.Preprocess(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", path, err)
	}
	if opts.SavePreprocessed {
		dst := filepath.Join(opts.SaveDir, imaging.PreprocessedName(path))
		if err := imaging.Save(img, dst); err != nil {
			m.logger.Warn("failed to save preprocessed image", zap.String("path", dst), zap.Error(err))
		} else {
			m.logger.Debug("saved preprocessed image", zap.String("path", dst))
		}
	}
	return img, nil
}

// SavePreprocessed writes the preprocessed form of the image at path into dir and returns the
// written file path.
func (m *Model) SavePreprocessed(ctx context.Context, path, dir string) (string, error) {
	img, err := m.prepare(ctx, path, EncodeOptions{})
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, imaging.PreprocessedName(path))
	if err := imaging.Save(img, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Dimensions returns the embedding dimension of the backend.
func (m *Model) Dimensions() int {
	return m.backend.Dimensions()
}

// BackendName identifies the backend in logs and status output.
func (m *Model) BackendName() string {
	return m.backend.Name()
}

// Close releases the backend.
func (m *Model) Close() error {
	return m.backend.Close()
}
