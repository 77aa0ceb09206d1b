package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache()

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v, "Set should replace")

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"), "second delete reports absence")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestMemoryCache_KeysAndClear(t *testing.T) {
	c := NewMemoryCache()
	c.Set("b", "x")
	c.Set("a", "y")
	assert.Equal(t, []string{"a", "b"}, c.Keys())

	c.Clear()
	assert.Empty(t, c.Keys())
	assert.Equal(t, 0, c.Info().NumEntries)
}

type sized struct{}

func (sized) ApproxSize() int64 { return 1000 }

func TestMemoryCache_Info(t *testing.T) {
	c := NewMemoryCache()
	assert.Equal(t, Info{}, c.Info())

	c.Set("vec", make([]float32, 10))
	info := c.Info()
	assert.Equal(t, 1, info.NumEntries)
	assert.GreaterOrEqual(t, info.ApproxBytes, int64(40+len("vec")))

	c.Set("model", sized{})
	info = c.Info()
	assert.Equal(t, 2, info.NumEntries)
	assert.GreaterOrEqual(t, info.ApproxBytes, int64(1000))

	c.Get("vec")
	c.Get("missing")
	info = c.Info()
	assert.Equal(t, int64(1), info.Hits)
	assert.Equal(t, int64(1), info.Misses)
}

func TestMemoryCache_IsolatedInstances(t *testing.T) {
	a, b := NewMemoryCache(), NewMemoryCache()
	a.Set("k", 1)
	_, ok := b.Get("k")
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	k, err := AttributeModelKey("shoe", "color")
	require.NoError(t, err)
	assert.Equal(t, "attribute_model:shoe:color", k)

	again, _ := AttributeModelKey("shoe", "color")
	assert.Equal(t, k, again, "keys are deterministic")

	k, err = CategoryModelsKey("bag")
	require.NoError(t, err)
	assert.Equal(t, "category_models:bag", k)

	k, err = IndexKey("bag")
	require.NoError(t, err)
	assert.Equal(t, "faiss_index:bag", k)

	k, err = EmbeddingKey([]byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Len(t, k, len("embedding:")+32)
	assert.Equal(t, PrefixEmbedding, Namespace(k))
	other, err := EmbeddingKey([]byte("png bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, k, other, "different content gets a different key")

	for name, fn := range map[string]func() (string, error){
		"attribute empty category": func() (string, error) { return AttributeModelKey("", "color") },
		"attribute empty attr":     func() (string, error) { return AttributeModelKey("shoe", "") },
		"category models empty":    func() (string, error) { return CategoryModelsKey("") },
		"embedding empty":          func() (string, error) { return EmbeddingKey(nil) },
		"index empty":              func() (string, error) { return IndexKey("") },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn()
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "attribute_model", Namespace("attribute_model:shoe:color"))
	assert.Equal(t, "", Namespace("plain"))
}
