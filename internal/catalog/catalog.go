// Package catalog builds and serves the product catalog: the vector index over product images,
// the product records in SQLite, and the filename keyword index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/embedding"
	"github.com/hyperjump/katachi/internal/imaging"
	"github.com/hyperjump/katachi/internal/keyword"
	"github.com/hyperjump/katachi/internal/models"
	"github.com/hyperjump/katachi/internal/storage"
	"github.com/hyperjump/katachi/internal/vector"
	"github.com/hyperjump/katachi/pkg/utils"
	"go.uber.org/zap"
)

// IndexName is the cache namespace argument for the product index.
const IndexName = "products"

// ErrMissingIndex is returned when no saved index exists on disk.
var ErrMissingIndex = errors.New("index not found")

// Encoder produces the normalized embedding of an image file.
type Encoder interface {
	EncodeImage(ctx context.Context, path string, opts embedding.EncodeOptions) ([]float32, error)
}

// IndexFactory returns a new empty vector index.
type IndexFactory func() (vector.VectorIndex, error)

// Catalog rebuilds and loads the product indices.
type Catalog struct {
	productsDir string
	extensions  []string
	encoder     Encoder
	store       *vector.Store
	newIndex    IndexFactory
	storage     storage.Storage
	keywords    keyword.KeywordIndex
	cache       cache.Cache
	logger      *zap.Logger
	mu          sync.Mutex
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStorage records product metadata in s on rebuild.
func WithStorage(s storage.Storage) Option {
	return func(c *Catalog) { c.storage = s }
}

// WithKeywordIndex indexes product filenames in k on rebuild.
func WithKeywordIndex(k keyword.KeywordIndex) Option {
	return func(c *Catalog) { c.keywords = k }
}

// WithCache remembers the loaded index under the faiss_index key.
func WithCache(ch cache.Cache) Option {
	return func(c *Catalog) { c.cache = ch }
}

// WithExtensions restricts rebuild to files with these extensions (empty = all files).
func WithExtensions(exts []string) Option {
	return func(c *Catalog) { c.extensions = exts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.logger = utils.OrNop(l) }
}

// New creates a catalog over productsDir.
func New(productsDir string, encoder Encoder, store *vector.Store, newIndex IndexFactory, opts ...Option) *Catalog {
	c := &Catalog{
		productsDir: productsDir,
		encoder:     encoder,
		store:       store,
		newIndex:    newIndex,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProductsDir returns the directory rebuild reads from.
func (c *Catalog) ProductsDir() string {
	return c.productsDir
}

// InDir returns a catalog sharing c's indices and options but reading products from dir.
func (c *Catalog) InDir(dir string) *Catalog {
	return &Catalog{
		productsDir: dir,
		extensions:  c.extensions,
		encoder:     c.encoder,
		store:       c.store,
		newIndex:    c.newIndex,
		storage:     c.storage,
		keywords:    c.keywords,
		cache:       c.cache,
		logger:      c.logger,
	}
}

// Store returns the vector store.
func (c *Catalog) Store() *vector.Store {
	return c.store
}

// ListImages returns the product image filenames in dir, sorted. Subdirectories and files
// with other extensions are skipped.
func ListImages(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read products dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if len(extensions) > 0 && !extensionAllowed(filepath.Ext(e.Name()), extensions) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// Rebuild encodes every product image, replaces the index, and persists the index and then
// the id-to-filename mapping. Product ids are positions in the sorted listing. progress, when
// non-nil, is called with each filename before it is encoded. Any encode failure aborts the
// rebuild and leaves the saved index untouched.
func (c *Catalog) Rebuild(ctx context.Context, progress func(filename string)) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.productsDir, 0755); err != nil {
		return 0, fmt.Errorf("create products dir: %w", err)
	}
	names, err := ListImages(c.productsDir, c.extensions)
	if err != nil {
		return 0, err
	}

	index, err := c.newIndex()
	if err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}
	vectors := make([][]float32, len(names))
	products := make([]*models.Product, len(names))
	now := time.Now().UTC()
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			_ = index.Close()
			return 0, err
		}
		if progress != nil {
			progress(name)
		}
		path := filepath.Join(c.productsDir, name)
		vec, err := c.encoder.EncodeImage(ctx, path, embedding.EncodeOptions{})
		if err != nil {
			_ = index.Close()
			return 0, fmt.Errorf("encode %s: %w", name, err)
		}
		vectors[i] = vec
		products[i] = describe(int64(i), path, now, c.logger)
	}

	if err := c.store.Reset(index); err != nil {
		c.logger.Warn("failed to close previous index", zap.Error(err))
	}
	for i, name := range names {
		if err := c.store.Add(ctx, int64(i), vectors[i], name); err != nil {
			return 0, fmt.Errorf("add %s to index: %w", name, err)
		}
	}
	if err := c.store.Save(); err != nil {
		return 0, err
	}
	c.markLoaded()

	if c.storage != nil {
		if err := c.storage.ReplaceProducts(ctx, products); err != nil {
			return 0, fmt.Errorf("store products: %w", err)
		}
	}
	if c.keywords != nil {
		if err := c.reindexKeywords(ctx, products); err != nil {
			return 0, err
		}
	}
	c.logger.Info("catalog rebuilt", zap.Int("products", len(names)), zap.String("dir", c.productsDir))
	return len(names), nil
}

func (c *Catalog) reindexKeywords(ctx context.Context, products []*models.Product) error {
	if err := c.keywords.Reset(); err != nil {
		return fmt.Errorf("reset keyword index: %w", err)
	}
	for _, p := range products {
		if err := c.keywords.Index(ctx, p); err != nil {
			return fmt.Errorf("index keywords for %s: %w", p.Filename, err)
		}
	}
	return nil
}

// describe collects file metadata. Header read failures are logged; the product is still
// recorded since it was encoded successfully.
func describe(id int64, path string, now time.Time, logger *zap.Logger) *models.Product {
	p := &models.Product{ID: id, Filename: filepath.Base(path), Path: path, IndexedAt: now}
	if info, err := os.Stat(path); err == nil {
		p.SizeBytes = info.Size()
		p.ModTime = info.ModTime().UTC()
	}
	format, w, h, err := imaging.Describe(path)
	if err != nil {
		logger.Warn("failed to read image header", zap.String("path", path), zap.Error(err))
		return p
	}
	p.Format, p.Width, p.Height = format, w, h
	return p
}

// Load restores the saved index and mapping. The result is remembered in the cache so later
// calls skip the disk until the cache entry is cleared. Returns ErrMissingIndex when nothing
// has been built.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded() {
		return nil
	}
	ok, err := c.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingIndex
	}
	c.markLoaded()
	c.logger.Debug("index loaded", zap.String("path", c.store.IndexPath()), zap.Int("size", c.store.Size()))
	return nil
}

func (c *Catalog) loaded() bool {
	if c.cache == nil {
		return false
	}
	key, err := cache.IndexKey(IndexName)
	if err != nil {
		return false
	}
	_, ok := c.cache.Get(key)
	return ok
}

func (c *Catalog) markLoaded() {
	if c.cache == nil {
		return
	}
	if key, err := cache.IndexKey(IndexName); err == nil {
		c.cache.Set(key, c.store.Size())
	}
}

// Product returns the stored record for id.
func (c *Catalog) Product(ctx context.Context, id int64) (*models.Product, error) {
	if c.storage == nil {
		return nil, storage.ErrNotFound
	}
	return c.storage.GetProduct(ctx, id)
}

// Products lists stored products ordered by id.
func (c *Catalog) Products(ctx context.Context, offset, limit int) ([]*models.Product, error) {
	if c.storage == nil {
		return nil, nil
	}
	return c.storage.ListProducts(ctx, offset, limit)
}
