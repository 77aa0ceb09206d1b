package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidKey is returned when a key helper gets an empty argument.
var ErrInvalidKey = errors.New("invalid cache key arguments")

// Key namespaces.
const (
	PrefixAttributeModel = "attribute_model"
	PrefixCategoryModels = "category_models"
	PrefixEmbedding      = "embedding"
	PrefixIndex          = "faiss_index"
)

// AttributeModelKey returns "attribute_model:<category>:<attribute>".
func AttributeModelKey(category, attribute string) (string, error) {
	return join(PrefixAttributeModel, category, attribute)
}

// CategoryModelsKey returns "category_models:<category>".
func CategoryModelsKey(category string) (string, error) {
	return join(PrefixCategoryModels, category)
}

// EmbeddingKey returns "embedding:<md5 of content>", where content is the image file's bytes.
func EmbeddingKey(content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrInvalidKey
	}
	sum := md5.Sum(content)
	return PrefixEmbedding + ":" + hex.EncodeToString(sum[:]), nil
}

// IndexKey returns "faiss_index:<category>".
func IndexKey(category string) (string, error) {
	return join(PrefixIndex, category)
}

// Namespace returns the prefix of key, or "" when key has none.
func Namespace(key string) string {
	ns, _, ok := strings.Cut(key, ":")
	if !ok {
		return ""
	}
	return ns
}

func join(prefix string, parts ...string) (string, error) {
	for _, p := range parts {
		if p == "" {
			return "", ErrInvalidKey
		}
	}
	return prefix + ":" + strings.Join(parts, ":"), nil
}
