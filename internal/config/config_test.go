package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
recommend:
  top_k: 8
preprocess:
  width: 256
  height: 256
  background_color: [10, 20, 30]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Recommend.TopK != 8 {
		t.Errorf("top_k=%d, want 8", cfg.Recommend.TopK)
	}
	if cfg.Preprocess.Width != 256 || cfg.Preprocess.Height != 256 {
		t.Errorf("preprocess size = %dx%d", cfg.Preprocess.Width, cfg.Preprocess.Height)
	}
	bg := cfg.Preprocess.Background()
	if bg.R != 10 || bg.G != 20 || bg.B != 30 || bg.A != 255 {
		t.Errorf("background = %+v", bg)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_zeroPaddingIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("preprocess:\n  padding: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Preprocess.PaddingFraction(); got != 0 {
		t.Errorf("padding=%f, want 0", got)
	}
}

func TestDefault_zeroPaddingFromEnv(t *testing.T) {
	t.Setenv("PREPROCESS_PADDING", "0")
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Preprocess.PaddingFraction(); got != 0 {
		t.Errorf("padding=%f, want 0", got)
	}
}

func TestLoad_invalidPreprocess(t *testing.T) {
	tests := map[string]string{
		"component above 255": "preprocess:\n  background_color: [300, 0, 0]\n",
		"negative component":  "preprocess:\n  background_color: [0, -1, 0]\n",
		"two components":      "preprocess:\n  background_color: [0, 0]\n",
		"negative padding":    "preprocess:\n  padding: -0.5\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  index_path: "./data/faiss_index/index.bin"
  products_dir: "./data/products"
  models_dir: "trained"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantIndex := filepath.Join(dir, "data", "faiss_index", "index.bin")
	if cfg.Storage.IndexPath != wantIndex {
		t.Errorf("index_path = %s, want %s", cfg.Storage.IndexPath, wantIndex)
	}
	wantMapping := filepath.Join(dir, "data", "faiss_index", "id_to_filename.json")
	if cfg.Storage.MappingPath() != wantMapping {
		t.Errorf("mapping path = %s, want %s", cfg.Storage.MappingPath(), wantMapping)
	}
	if cfg.Storage.ModelsDir != "trained" {
		t.Errorf("plain relative path should be left alone, got %s", cfg.Storage.ModelsDir)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Recommend.TopK != 5 {
		t.Errorf("default top_k: got %d", cfg.Recommend.TopK)
	}
	if cfg.Embedding.Dimensions != 512 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Model != "openai/clip-vit-base-patch32" {
		t.Errorf("default model: got %s", cfg.Embedding.Model)
	}
	if cfg.Storage.IndexPath != "data/faiss_index/index.bin" {
		t.Errorf("default index path: got %s", cfg.Storage.IndexPath)
	}
	if cfg.Preprocess.Width != 224 || cfg.Preprocess.Height != 224 || cfg.Preprocess.PaddingFraction() != 0.1 {
		t.Errorf("preprocess defaults: %+v", cfg.Preprocess)
	}
	if bg := cfg.Preprocess.Background(); bg.R != 255 || bg.G != 255 || bg.B != 255 {
		t.Errorf("default background: %+v", bg)
	}
	if !cfg.Preprocess.BackgroundRemovalEnabled() {
		t.Error("background removal should default to enabled")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DEVICE":              "cuda",
		"TOP_K":               "3",
		"USE_BG_REMOVAL":      "false",
		"PREPROCESS_SIZE":     "(128, 96)",
		"PREPROCESS_PADDING":  "0.25",
		"PREPROCESS_BG_COLOR": "0,0,0",
		"FAISS_INDEX_PATH":    "/tmp/idx/index.bin",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := &Config{}
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	ApplyDefaults(cfg)
	if cfg.Embedding.Device != "cuda" {
		t.Errorf("device=%s", cfg.Embedding.Device)
	}
	if cfg.Recommend.TopK != 3 {
		t.Errorf("top_k=%d", cfg.Recommend.TopK)
	}
	if cfg.Preprocess.BackgroundRemovalEnabled() {
		t.Error("USE_BG_REMOVAL=false should disable background removal")
	}
	if cfg.Preprocess.Width != 128 || cfg.Preprocess.Height != 96 {
		t.Errorf("size=%dx%d", cfg.Preprocess.Width, cfg.Preprocess.Height)
	}
	if cfg.Preprocess.PaddingFraction() != 0.25 {
		t.Errorf("padding=%f", cfg.Preprocess.PaddingFraction())
	}
	if bg := cfg.Preprocess.Background(); bg.R != 0 || bg.G != 0 || bg.B != 0 {
		t.Errorf("black background from env should survive defaults, got %+v", bg)
	}
	if cfg.Storage.IndexPath != "/tmp/idx/index.bin" {
		t.Errorf("index path=%s", cfg.Storage.IndexPath)
	}
}

func TestApplyEnv_invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TOP_K", "zero"},
		{"TOP_K", "-1"},
		{"USE_BG_REMOVAL", "maybe"},
		{"PREPROCESS_SIZE", "1,2,3"},
		{"PREPROCESS_BG_COLOR", "300,0,0"},
		{"EMBEDDING_DIM", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == tt.key {
					return tt.value, true
				}
				return "", false
			}
			if err := ApplyEnv(&Config{}, lookup); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestDefault_readsEnvironment(t *testing.T) {
	t.Setenv("TOP_K", "11")
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Recommend.TopK != 11 {
		t.Errorf("top_k=%d, want 11", cfg.Recommend.TopK)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:    ServerConfig{Host: "localhost", Port: 9090},
		Recommend: RecommendConfig{TopK: 7},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Recommend.TopK != 7 {
		t.Errorf("loaded top_k: got %d", loaded.Recommend.TopK)
	}
}
