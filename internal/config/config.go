// Package config provides configuration loading and structs for katachi.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Vector     VectorConfig     `yaml:"vector"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalog, indices and trained models.
type StorageConfig struct {
	ProductsDir     string `yaml:"products_dir"`
	IndexPath       string `yaml:"index_path"`
	DatabasePath    string `yaml:"database_path"`
	KeywordPath     string `yaml:"keyword_index_path"`
	ModelsDir       string `yaml:"models_dir"`
	PreprocessedDir string `yaml:"preprocessed_dir"`
}

// MappingPath returns the id-to-filename table stored next to the index file.
func (s *StorageConfig) MappingPath() string {
	return filepath.Join(filepath.Dir(s.IndexPath), "id_to_filename.json")
}

// EmbeddingConfig holds vision-language model settings.
type EmbeddingConfig struct {
	Model           string `yaml:"model"`
	Device          string `yaml:"device"`
	VisionModelPath string `yaml:"vision_model_path"`
	TextModelPath   string `yaml:"text_model_path"`
	TokenizerPath   string `yaml:"tokenizer_path"`
	RuntimeLibrary  string `yaml:"onnxruntime_library"`
	Dimensions      int    `yaml:"dimensions"`
	ContextLength   int    `yaml:"context_length"`
	CacheSize       int    `yaml:"cache_size"`
}

// PreprocessConfig holds image normalization settings.
type PreprocessConfig struct {
	UseBackgroundRemoval *bool    `yaml:"use_background_removal"`
	Width                int      `yaml:"width"`
	Height               int      `yaml:"height"`
	Padding              *float64 `yaml:"padding"`
	BackgroundColor      []int    `yaml:"background_color,flow"`
	Segmenter            string   `yaml:"segmenter"`
	SegmenterModelPath   string   `yaml:"segmenter_model_path"`
}

// Background returns the canvas fill color.
func (p *PreprocessConfig) Background() color.NRGBA {
	c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if len(p.BackgroundColor) == 3 {
		c.R = uint8(p.BackgroundColor[0])
		c.G = uint8(p.BackgroundColor[1])
		c.B = uint8(p.BackgroundColor[2])
	}
	return c
}

// DefaultPadding is the crop padding used when none is configured.
const DefaultPadding = 0.1

// PaddingFraction returns the configured crop padding, DefaultPadding when unset.
// An explicit 0 is kept.
func (p *PreprocessConfig) PaddingFraction() float64 {
	if p.Padding != nil {
		return *p.Padding
	}
	return DefaultPadding
}

// BackgroundRemovalEnabled reports whether foreground isolation is selected; defaults to true when unset.
func (p *PreprocessConfig) BackgroundRemovalEnabled() bool {
	if p.UseBackgroundRemoval != nil {
		return *p.UseBackgroundRemoval
	}
	return true
}

// VectorConfig selects the vector index implementation.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// RecommendConfig holds recommendation settings.
type RecommendConfig struct {
	TopK int `yaml:"top_k"`
}

// WatchConfig holds products directory watch settings.
type WatchConfig struct {
	Extensions []string `yaml:"extensions"`
	DebounceMS int      `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Preprocess.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

func (p *PreprocessConfig) validate() error {
	if p.BackgroundColor != nil {
		if len(p.BackgroundColor) != 3 {
			return fmt.Errorf("preprocess.background_color %v must have 3 components", p.BackgroundColor)
		}
		for _, c := range p.BackgroundColor {
			if c < 0 || c > 255 {
				return fmt.Errorf("preprocess.background_color %v: components must be 0-255", p.BackgroundColor)
			}
		}
	}
	if p.Padding != nil && *p.Padding < 0 {
		return fmt.Errorf("preprocess.padding %v must not be negative", *p.Padding)
	}
	return nil
}

// Default returns a config built from defaults and environment overrides only.
// Relative paths stay relative to the working directory.
func Default() (*Config, error) {
	var cfg Config
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

func (c *Config) expandPaths(configDir string) {
	c.Storage.ProductsDir = expandPath(c.Storage.ProductsDir, configDir)
	c.Storage.IndexPath = expandPath(c.Storage.IndexPath, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.KeywordPath = expandPath(c.Storage.KeywordPath, configDir)
	c.Storage.ModelsDir = expandPath(c.Storage.ModelsDir, configDir)
	c.Storage.PreprocessedDir = expandPath(c.Storage.PreprocessedDir, configDir)
	c.Embedding.VisionModelPath = expandPath(c.Embedding.VisionModelPath, configDir)
	c.Embedding.TextModelPath = expandPath(c.Embedding.TextModelPath, configDir)
	c.Embedding.TokenizerPath = expandPath(c.Embedding.TokenizerPath, configDir)
	c.Embedding.RuntimeLibrary = expandPath(c.Embedding.RuntimeLibrary, configDir)
	c.Preprocess.SegmenterModelPath = expandPath(c.Preprocess.SegmenterModelPath, configDir)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are left relative to the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}
