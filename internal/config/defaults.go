package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.ProductsDir == "" {
		cfg.Storage.ProductsDir = "data/products"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "data/faiss_index/index.bin"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/katachi.db"
	}
	if cfg.Storage.KeywordPath == "" {
		cfg.Storage.KeywordPath = "data/keyword"
	}
	if cfg.Storage.ModelsDir == "" {
		cfg.Storage.ModelsDir = "models"
	}
	if cfg.Storage.PreprocessedDir == "" {
		cfg.Storage.PreprocessedDir = "data/preprocessed"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "openai/clip-vit-base-patch32"
	}
	if cfg.Embedding.Device == "" {
		cfg.Embedding.Device = "cpu"
	}
	if cfg.Embedding.VisionModelPath == "" {
		cfg.Embedding.VisionModelPath = "models/clip/vision_model.onnx"
	}
	if cfg.Embedding.TextModelPath == "" {
		cfg.Embedding.TextModelPath = "models/clip/text_model.onnx"
	}
	if cfg.Embedding.TokenizerPath == "" {
		cfg.Embedding.TokenizerPath = "models/clip/tokenizer.json"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	if cfg.Embedding.ContextLength == 0 {
		cfg.Embedding.ContextLength = 77
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Preprocess.Width == 0 {
		cfg.Preprocess.Width = 224
	}
	if cfg.Preprocess.Height == 0 {
		cfg.Preprocess.Height = 224
	}
	if cfg.Preprocess.Padding == nil {
		padding := DefaultPadding
		cfg.Preprocess.Padding = &padding
	}
	if len(cfg.Preprocess.BackgroundColor) != 3 {
		cfg.Preprocess.BackgroundColor = []int{255, 255, 255}
	}
	if cfg.Preprocess.Segmenter == "" {
		cfg.Preprocess.Segmenter = "u2net"
	}
	if cfg.Preprocess.SegmenterModelPath == "" {
		cfg.Preprocess.SegmenterModelPath = "models/u2net/u2net.onnx"
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Recommend.TopK == 0 {
		cfg.Recommend.TopK = 5
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif", ".tif", ".tiff"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 1000
	}
}
