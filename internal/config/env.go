package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg fields from environment variables. Unset variables leave fields untouched.
//
//	DEVICE, EMBEDDING_MODEL, EMBEDDING_DIM, TOP_K, USE_BG_REMOVAL,
//	PREPROCESS_SIZE ("224" or "224,224"), PREPROCESS_PADDING, PREPROCESS_BG_COLOR ("255,255,255"),
//	FAISS_INDEX_PATH, PRODUCTS_DIR, MODELS_DIR, ONNXRUNTIME_LIB, VECTOR_INDEX_TYPE
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookup("DEVICE"); ok && v != "" {
		cfg.Embedding.Device = v
	}
	if v, ok := lookup("EMBEDDING_MODEL"); ok && v != "" {
		cfg.Embedding.Model = v
	}
	if v, ok := lookup("EMBEDDING_DIM"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid EMBEDDING_DIM %q", v)
		}
		cfg.Embedding.Dimensions = n
	}
	if v, ok := lookup("TOP_K"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid TOP_K %q", v)
		}
		cfg.Recommend.TopK = n
	}
	if v, ok := lookup("USE_BG_REMOVAL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid USE_BG_REMOVAL %q: %w", v, err)
		}
		cfg.Preprocess.UseBackgroundRemoval = &b
	}
	if v, ok := lookup("PREPROCESS_SIZE"); ok && v != "" {
		parts, err := parseInts(v)
		if err != nil || (len(parts) != 1 && len(parts) != 2) || parts[0] <= 0 || parts[len(parts)-1] <= 0 {
			return fmt.Errorf("invalid PREPROCESS_SIZE %q", v)
		}
		cfg.Preprocess.Width = parts[0]
		cfg.Preprocess.Height = parts[len(parts)-1]
	}
	if v, ok := lookup("PREPROCESS_PADDING"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid PREPROCESS_PADDING %q", v)
		}
		cfg.Preprocess.Padding = &f
	}
	if v, ok := lookup("PREPROCESS_BG_COLOR"); ok && v != "" {
		parts, err := parseInts(v)
		if err != nil || len(parts) != 3 {
			return fmt.Errorf("invalid PREPROCESS_BG_COLOR %q", v)
		}
		for _, c := range parts {
			if c < 0 || c > 255 {
				return fmt.Errorf("invalid PREPROCESS_BG_COLOR %q", v)
			}
		}
		cfg.Preprocess.BackgroundColor = parts
	}
	if v, ok := lookup("FAISS_INDEX_PATH"); ok && v != "" {
		cfg.Storage.IndexPath = v
	}
	if v, ok := lookup("PRODUCTS_DIR"); ok && v != "" {
		cfg.Storage.ProductsDir = v
	}
	if v, ok := lookup("MODELS_DIR"); ok && v != "" {
		cfg.Storage.ModelsDir = v
	}
	if v, ok := lookup("ONNXRUNTIME_LIB"); ok && v != "" {
		cfg.Embedding.RuntimeLibrary = v
	}
	if v, ok := lookup("VECTOR_INDEX_TYPE"); ok && v != "" {
		cfg.Vector.IndexType = v
	}
	return nil
}

// parseInts accepts "1,2,3", "(1, 2, 3)" or "1 2 3".
func parseInts(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "()[]")
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == 'x' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
