package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/catalog"
	"github.com/hyperjump/katachi/internal/classify"
	"github.com/hyperjump/katachi/internal/embedding"
	"github.com/hyperjump/katachi/internal/imaging"
	"github.com/hyperjump/katachi/internal/models"
	"github.com/hyperjump/katachi/internal/recommend"
	"github.com/hyperjump/katachi/internal/storage"
	"go.uber.org/zap"
)

// missingIndexMessage is shown whenever a query needs an index that was never built.
const missingIndexMessage = "FAISS index not found. Rebuild index first."

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.catalog.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog": st,
		"cache":   s.cache.Info(),
		"top_k":   s.recommender.TopK(),
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	if err := s.catalog.Load(); err != nil {
		s.respondFailure(w, "load index", err)
		return
	}
	recs, err := s.recommender.Recommend(r.Context(), path, embedding.EncodeOptions{})
	if err != nil {
		s.respondFailure(w, "recommend", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": recs})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	useTrained, _ := strconv.ParseBool(r.FormValue("use_trained"))
	res, err := s.classifier.Classify(r.Context(), path, useTrained)
	if err != nil {
		s.respondFailure(w, "classify", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.Rebuild(r.Context(), func(name string) {
		s.logger.Debug("rebuild processing", zap.String("file", name))
	})
	if err != nil {
		s.respondFailure(w, "rebuild", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "rebuilt", "products": n})
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var q models.FindQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := q.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("find request", zap.String("query", q.Query), zap.Bool("fuzzy", q.Fuzzy))
	res, err := s.catalog.Find(r.Context(), q)
	if err != nil {
		s.respondFailure(w, "find", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	products, err := s.catalog.Products(r.Context(), offset, limit)
	if err != nil {
		s.respondFailure(w, "list products", err)
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"products": products, "offset": offset, "limit": limit})
}

func (s *Server) productFromPath(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid product id")
		return nil, false
	}
	p, err := s.catalog.Product(r.Context(), id)
	if err != nil {
		s.respondFailure(w, "get product", err)
		return nil, false
	}
	return p, true
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.productFromPath(w, r); ok {
		s.respondJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleProductImage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.productFromPath(w, r)
	if !ok {
		return
	}
	http.ServeFile(w, r, filepath.Join(s.catalog.ProductsDir(), p.Filename))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	if _, err := s.catalog.Export(r.Context(), w); err != nil {
		s.logger.Error("export failed", zap.Error(err))
	}
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"keys": s.cache.Keys(), "info": s.cache.Info()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !s.cache.Delete(key) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("cache key %q not found", key))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"key": key, "namespace": cache.Namespace(key), "status": "deleted"})
}

// saveUpload writes the "image" form file to a uniquely named temp file. The caller must run
// cleanup when done.
func (s *Server) saveUpload(r *http.Request) (string, func(), error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil, errors.New("image file is required")
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", nil, err
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(s.uploadDir, "upload-"+uuid.NewString()+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	s.logger.Debug("upload saved", zap.String("filename", header.Filename), zap.String("path", path))
	return path, func() { _ = os.Remove(path) }, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrMissingIndex), errors.Is(err, recommend.ErrIndexEmpty):
		return http.StatusServiceUnavailable
	case errors.Is(err, imaging.ErrUnavailable), errors.Is(err, catalog.ErrNoKeywordIndex):
		return http.StatusServiceUnavailable
	case errors.Is(err, imaging.ErrMalformedInput), errors.Is(err, classify.ErrUnsupportedCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if errors.Is(err, catalog.ErrMissingIndex) || errors.Is(err, recommend.ErrIndexEmpty) {
		msg = missingIndexMessage
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
