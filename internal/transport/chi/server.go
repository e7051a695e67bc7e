// Package chi is the HTTP boundary. It owns request decoding, the
// topK/threshold defaults, and the sentinel-to-status error mapping;
// the usecases below it never see HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/domain/search/mode"
	"github.com/roamlabs/tripdex/internal/domain/search/request"
	"github.com/roamlabs/tripdex/internal/metrics"
	documentuc "github.com/roamlabs/tripdex/internal/usecase/document"
	searchuc "github.com/roamlabs/tripdex/internal/usecase/search"
)

// Boundary defaults applied when the client omits a parameter.
const (
	DefaultTopK      = 10
	DefaultThreshold = 0.1
)

// Defaults are the boundary-layer search defaults, overridable from config.
type Defaults struct {
	TopK      int
	Threshold float64
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	search        *searchuc.Service
	documents     *documentuc.Service
	health        domain.HealthChecker
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. health may be nil when the
// embedding provider exposes no health check.
func NewServer(
	search *searchuc.Service,
	documents *documentuc.Service,
	health domain.HealthChecker,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	if defaults.TopK <= 0 {
		defaults.TopK = DefaultTopK
	}
	if defaults.Threshold < 0 || defaults.Threshold > 1 {
		defaults.Threshold = DefaultThreshold
	}
	s := &Server{
		search:    search,
		documents: documents,
		health:    health,
		defaults:  defaults,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, codeDimensionMismatch),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.SearchDocuments)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.IndexDocument)
			r.Delete("/", s.ClearDocuments)
			r.Post("/batch", s.BatchIndex)
			r.Get("/{id}", s.GetDocument)
			r.Delete("/{id}", s.DeleteDocument)
			r.Get("/{id}/similar", s.SimilarDocuments)
		})
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchDocuments handles POST /api/v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	m := mode.Mode(body.Mode)
	if body.Mode == "" {
		m = mode.Similarity
	}

	topK := s.defaults.TopK
	if body.TopK != nil {
		topK = *body.TopK
	}
	threshold := 0.0
	if m.Thresholded() {
		threshold = s.defaults.Threshold
	}
	if body.Threshold != nil {
		threshold = *body.Threshold
	}

	req, err := request.New(
		body.Query, m, metadata.Filters(body.Filters), topK, threshold,
		body.Boosts, body.FeatureWeights, body.Normalize, body.IncludeVectors,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	start := time.Now()
	set, err := s.search.Search(r.Context(), &req)
	s.recordSearch(string(m), time.Since(start), err)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.SearchResultsRetrieved.Observe(float64(set.Stats().Retrieved))
	writeJSON(w, http.StatusOK, searchResponse{
		Results: searchResultsToItems(set.Results()),
		Stats: searchStats{
			Retrieved:    set.Stats().Retrieved,
			AverageScore: set.Stats().AverageScore,
		},
	})
}

// SimilarDocuments handles GET /api/v1/documents/{id}/similar.
// Filters come as repeated "filter=field:value" query parameters.
func (s *Server) SimilarDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	topK := s.defaults.TopK
	if raw := q.Get("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "top_k must be an integer")
			return
		}
		topK = v
	}
	threshold := s.defaults.Threshold
	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "threshold must be a number")
			return
		}
		threshold = v
	}
	includeVectors := q.Get("include_vectors") == "true"

	filters, err := filtersFromQuery(q["filter"])
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	req, err := request.NewSimilar(filters, topK, threshold, includeVectors)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	start := time.Now()
	set, err := s.search.Similar(r.Context(), id, &req)
	s.recordSearch("similar", time.Since(start), err)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.SearchResultsRetrieved.Observe(float64(set.Stats().Retrieved))
	writeJSON(w, http.StatusOK, searchResponse{
		Results: searchResultsToItems(set.Results()),
		Stats: searchStats{
			Retrieved:    set.Stats().Retrieved,
			AverageScore: set.Stats().AverageScore,
		},
	})
}

// IndexDocument handles POST /api/v1/documents.
func (s *Server) IndexDocument(w http.ResponseWriter, r *http.Request) {
	var body indexRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := indexRequestFromBody(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	doc, err := s.documents.Index(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/documents/"+doc.ID())
	writeJSON(w, http.StatusCreated, documentToResponse(&doc, false))
}

// BatchIndex handles POST /api/v1/documents/batch.
func (s *Server) BatchIndex(w http.ResponseWriter, r *http.Request) {
	var body batchIndexRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(body.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "documents must not be empty")
		return
	}

	reqs := make([]documentuc.IndexRequest, 0, len(body.Documents))
	for _, item := range body.Documents {
		req, err := indexRequestFromBody(item)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		reqs = append(reqs, req)
	}

	results := s.documents.IndexBatch(r.Context(), reqs)
	writeJSON(w, http.StatusOK, batchResultsToResponse(results))
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	includeVector := r.URL.Query().Get("include_vector") == "true"
	writeJSON(w, http.StatusOK, documentToResponse(&doc, includeVector))
}

// DeleteDocument handles DELETE /api/v1/documents/{id}. Removal is
// idempotent: deleting an absent document still returns 204.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	s.documents.Remove(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearDocuments handles DELETE /api/v1/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	s.documents.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Checks:    map[string]string{},
		Documents: s.documents.Count(r.Context()),
	}

	status := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["embedding"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["embedding"] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) recordSearch(m string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(m, status).Inc()
	metrics.SearchDuration.WithLabelValues(m).Observe(duration.Seconds())
}

func filtersFromQuery(raw []string) (metadata.Filters, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(metadata.Filters)
	for _, pair := range raw {
		field, value, ok := strings.Cut(pair, ":")
		if !ok || field == "" || value == "" {
			return nil, fmt.Errorf("filter %q must be field:value", pair)
		}
		filters[field] = append(filters[field], value)
	}
	return filters, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrDimensionMismatch,
		domain.ErrInvalidArgument,
		domain.ErrEmbeddingUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func batchErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return codeAlreadyExists
	case errors.Is(err, domain.ErrDimensionMismatch):
		return codeDimensionMismatch
	case errors.Is(err, domain.ErrInvalidArgument):
		return codeValidationFailed
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return codeEmbeddingUnavailable
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return codeEmbeddingProviderError
	default:
		return codeInternalError
	}
}
