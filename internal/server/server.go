// Package server provides the HTTP API for katachi.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/catalog"
	"github.com/hyperjump/katachi/internal/classify"
	"github.com/hyperjump/katachi/internal/config"
	"github.com/hyperjump/katachi/internal/recommend"
	"go.uber.org/zap"
)

// maxUploadBytes bounds multipart image uploads.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the katachi API.
type Server struct {
	catalog     *catalog.Catalog
	recommender *recommend.Service
	classifier  *classify.Service
	cache       cache.Cache
	config      *config.ServerConfig
	uploadDir   string
	logger      *zap.Logger
	server      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithUploadDir sets where uploaded query images are written while they are processed.
func WithUploadDir(dir string) Option {
	return func(s *Server) { s.uploadDir = dir }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	cat *catalog.Catalog,
	rec *recommend.Service,
	cls *classify.Service,
	c cache.Cache,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		catalog:     cat,
		recommender: rec,
		classifier:  cls,
		cache:       c,
		config:      cfg,
		uploadDir:   os.TempDir(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/recommend", s.handleRecommend)
		r.Post("/classify", s.handleClassify)
		r.Post("/rebuild", s.handleRebuild)
		r.Post("/find", s.handleFind)
		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/products/{id}/image", s.handleProductImage)
		r.With(middleware.Compress(5)).Get("/export", s.handleExport)
		r.Get("/cache", s.handleCacheInfo)
		r.Delete("/cache", s.handleCacheClear)
		r.Delete("/cache/{key}", s.handleCacheDelete)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
