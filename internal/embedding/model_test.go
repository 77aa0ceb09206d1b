package embedding

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/katachi/internal/config"
	"github.com/hyperjump/katachi/internal/imaging"
	"github.com/hyperjump/katachi/pkg/utils"
)

func writeImage(t *testing.T, dir, name string, draw func(x, y int) color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, draw(x, y))
		}
	}
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func gradient(x, y int) color.NRGBA {
	return color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255}
}

func stripes(x, _ int) color.NRGBA {
	if x%8 < 4 {
		return color.NRGBA{R: 250, G: 250, B: 10, A: 255}
	}
	return color.NRGBA{R: 5, G: 5, B: 120, A: 255}
}

func newTestModel() *Model {
	return NewModel(NewMockBackend(64), imaging.NewPassthrough(imaging.DefaultOptions()))
}

func TestEncodeImage_UnitNorm(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel()
	for _, p := range []string{
		writeImage(t, dir, "gradient.png", gradient),
		writeImage(t, dir, "stripes.png", stripes),
		writeImage(t, dir, "dark.png", func(int, int) color.NRGBA { return color.NRGBA{R: 3, A: 255} }),
	} {
		vec, err := m.EncodeImage(context.Background(), p, EncodeOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(vec) != 64 {
			t.Errorf("len=%d, want 64", len(vec))
		}
		if n := utils.L2Norm(vec); math.Abs(n-1) > 1e-5 {
			t.Errorf("%s: norm=%v, want 1", filepath.Base(p), n)
		}
	}
}

func TestEncodeImage_DeterministicAndDiscriminative(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel()
	a := writeImage(t, dir, "a.png", gradient)
	b := writeImage(t, dir, "b.png", stripes)

	va1, _ := m.EncodeImage(context.Background(), a, EncodeOptions{})
	va2, _ := m.EncodeImage(context.Background(), a, EncodeOptions{})
	vb, _ := m.EncodeImage(context.Background(), b, EncodeOptions{})
	if d := utils.SquaredL2(va1, va2); d != 0 {
		t.Errorf("same image distance=%v, want 0", d)
	}
	if d := utils.SquaredL2(va1, vb); d < 1e-3 {
		t.Errorf("different images distance=%v, want > 0", d)
	}
}

func TestEncodeImage_SavePreprocessed(t *testing.T) {
	dir := t.TempDir()
	saveDir := filepath.Join(dir, "pre")
	m := newTestModel()
	p := writeImage(t, dir, "shoe.png", gradient)

	plain, err := m.EncodeImage(context.Background(), p, EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	saved, err := m.EncodeImage(context.Background(), p, EncodeOptions{SavePreprocessed: true, SaveDir: saveDir})
	if err != nil {
		t.Fatal(err)
	}
	for i := range plain {
		if plain[i] != saved[i] {
			t.Fatalf("saving the preprocessed image changed the vector at %d", i)
		}
	}
	out, err := imaging.Open(filepath.Join(saveDir, "pre_shoe.png"))
	if err != nil {
		t.Fatalf("preprocessed image not written: %v", err)
	}
	if out.Bounds().Dx() != 224 || out.Bounds().Dy() != 224 {
		t.Errorf("preprocessed size=%v", out.Bounds())
	}
}

func TestSavePreprocessed(t *testing.T) {
	dir := t.TempDir()
	p := writeImage(t, dir, "bag.webp.png", stripes)
	dst, err := newTestModel().SavePreprocessed(context.Background(), p, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dst) != "pre_bag.webp.png" {
		t.Errorf("dst=%s", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("preprocessed file missing: %v", err)
	}
}

func TestEncodeImage_MalformedInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestModel().EncodeImage(context.Background(), bad, EncodeOptions{})
	if !errors.Is(err, imaging.ErrMalformedInput) {
		t.Errorf("err=%v, want ErrMalformedInput", err)
	}
}

func TestClassifyImage_RankingDeterministic(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel()
	p := writeImage(t, dir, "a.png", gradient)
	labels := []string{"a photo of a shoe", "a photo of a bag", "a photo of a hat"}

	first, err := m.ClassifyImage(context.Background(), p, labels)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.ClassifyImage(context.Background(), p, labels)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(labels) {
		t.Fatalf("got %d scores, want %d", len(first), len(labels))
	}
	var sum float64
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("rank %d: %+v then %+v", i, first[i], second[i])
		}
		if i > 0 && first[i].Probability > first[i-1].Probability {
			t.Errorf("scores not sorted descending at %d", i)
		}
		sum += float64(first[i].Probability)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("probabilities sum to %v", sum)
	}
}

func TestScoreLabels_TiesKeepLabelOrder(t *testing.T) {
	m := newTestModel()
	img := make([]float32, 64)
	img[0] = 1
	// Identical labels produce identical text vectors and therefore identical probabilities.
	scores, err := m.ScoreLabels(context.Background(), img, []string{"same", "same", "same"})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range scores {
		if math.Abs(float64(s.Probability)-1.0/3) > 1e-6 {
			t.Errorf("probability=%v, want 1/3", s.Probability)
		}
	}

	scores, err = m.ScoreLabels(context.Background(), make([]float32, 64), []string{"z", "a", "m"})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"z", "a", "m"} {
		if scores[i].Label != want {
			t.Errorf("rank %d = %s, want %s (zero image scores everything equally)", i, scores[i].Label, want)
		}
	}
}

func TestClassifyImage_NoLabels(t *testing.T) {
	if _, err := newTestModel().ClassifyImage(context.Background(), "unused.png", nil); !errors.Is(err, ErrNoLabels) {
		t.Errorf("err=%v, want ErrNoLabels", err)
	}
}

// countingBackend records how many texts reach the backend.
type countingBackend struct {
	*MockBackend
	texts int
}

func (c *countingBackend) TextFeatures(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts += len(texts)
	return c.MockBackend.TextFeatures(ctx, texts)
}

func TestScoreLabels_CachesTextFeatures(t *testing.T) {
	backend := &countingBackend{MockBackend: NewMockBackend(16)}
	m := NewModel(backend, nil, WithTextCacheSize(8))
	img := make([]float32, 16)
	img[3] = 1
	if _, err := m.ScoreLabels(context.Background(), img, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ScoreLabels(context.Background(), img, []string{"b", "c", "a"}); err != nil {
		t.Fatal(err)
	}
	if backend.texts != 3 {
		t.Errorf("backend saw %d texts, want 3 (a, b, c once each)", backend.texts)
	}
}

func TestNewBackend_MissingModelFailsFast(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.VisionModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	b, err := NewBackend(&cfg.Embedding, nil)
	if !errors.Is(err, imaging.ErrUnavailable) {
		t.Fatalf("err=%v, want ErrUnavailable", err)
	}
	if b != nil {
		t.Errorf("got backend %s, want none", b.Name())
	}
}

func TestNewBackend_ExplicitMock(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Model = "MOCK"
	b, err := NewBackend(&cfg.Embedding, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != MockModelName || b.Dimensions() != cfg.Embedding.Dimensions {
		t.Errorf("got %s/%d, want mock/%d", b.Name(), b.Dimensions(), cfg.Embedding.Dimensions)
	}
}

func TestPixelValues(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 255, 0, 0, 255
	}
	px := pixelValues(img, 224)
	if len(px) != 3*224*224 {
		t.Fatalf("len=%d", len(px))
	}
	wantR := (1 - clipMean[0]) / clipStd[0]
	wantG := (0 - clipMean[1]) / clipStd[1]
	if math.Abs(float64(px[0]-wantR)) > 1e-4 {
		t.Errorf("R plane=%v, want %v", px[0], wantR)
	}
	if math.Abs(float64(px[224*224]-wantG)) > 1e-4 {
		t.Errorf("G plane=%v, want %v", px[224*224], wantG)
	}
}
