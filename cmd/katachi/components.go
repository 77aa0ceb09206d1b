package main

import (
	"errors"
	"fmt"

	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/catalog"
	"github.com/hyperjump/katachi/internal/classify"
	"github.com/hyperjump/katachi/internal/config"
	"github.com/hyperjump/katachi/internal/embedding"
	"github.com/hyperjump/katachi/internal/imaging"
	"github.com/hyperjump/katachi/internal/keyword"
	"github.com/hyperjump/katachi/internal/recommend"
	"github.com/hyperjump/katachi/internal/storage"
	"github.com/hyperjump/katachi/internal/vector"
	"go.uber.org/zap"
)

// Components holds every long-lived service for one process.
type Components struct {
	Config       *config.Config
	Storage      *storage.SQLiteStorage
	KeywordIndex *keyword.BleveIndex
	Preprocessor imaging.Preprocessor
	Model        *embedding.Model
	Store        *vector.Store
	Cache        *cache.MemoryCache
	Catalog      *catalog.Catalog
	Recommender  *recommend.Service
	Classifier   *classify.Service
}

// Close releases components in reverse order of creation.
func (c *Components) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Model != nil {
		errs = append(errs, c.Model.Close())
	}
	if c.Preprocessor != nil {
		errs = append(errs, imaging.Close(c.Preprocessor))
	}
	if c.KeywordIndex != nil {
		errs = append(errs, c.KeywordIndex.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, Cache: cache.NewMemoryCache()}
	fail := func(err error) (*Components, error) {
		_ = c.Close()
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.Storage = store

	kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordPath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize keyword index: %w", err))
	}
	c.KeywordIndex = kw

	pre, err := imaging.New(&cfg.Preprocess, &cfg.Embedding, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize preprocessor: %w", err))
	}
	c.Preprocessor = pre

	backend, err := embedding.NewBackend(&cfg.Embedding, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embedding model: %w", err))
	}
	c.Model = embedding.NewModel(backend, pre,
		embedding.WithLogger(logger),
		embedding.WithTextCacheSize(cfg.Embedding.CacheSize))
	// The index dimension follows the backend actually loaded.
	cfg.Embedding.Dimensions = backend.Dimensions()

	newIndex, indexType, err := vector.Factory(cfg.Vector.IndexType, cfg.Embedding.Dimensions, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector index: %w", err))
	}
	idx, err := newIndex()
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector index: %w", err))
	}
	c.Store = vector.NewStore(idx, cfg.Storage.IndexPath, cfg.Storage.MappingPath())
	logger.Info("vector index initialized",
		zap.String("type", string(indexType)),
		zap.String("backend", backend.Name()))

	c.Catalog = catalog.New(cfg.Storage.ProductsDir, c.Model, c.Store, newIndex,
		catalog.WithStorage(store),
		catalog.WithKeywordIndex(kw),
		catalog.WithCache(c.Cache),
		catalog.WithExtensions(cfg.Watch.Extensions),
		catalog.WithLogger(logger))
	c.Recommender = recommend.NewService(c.Model, c.Store,
		recommend.WithTopK(cfg.Recommend.TopK),
		recommend.WithCache(c.Cache),
		recommend.WithLogger(logger))

	trained := classify.NewTrainedService(c.Model, c.Cache, cfg.Storage.ModelsDir, classify.WithLogger(logger))
	c.Classifier = classify.NewService(
		classify.NewCategoryClassifier(c.Model),
		classify.NewAttributeClassifier(classify.NewZeroShotService(c.Model), trained, logger),
	)
	return c, nil
}
