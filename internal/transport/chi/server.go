package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/logger"
	facetsuc "github.com/kailas-cloud/facetd/internal/usecase/facets"
	healthuc "github.com/kailas-cloud/facetd/internal/usecase/health"
	"github.com/kailas-cloud/facetd/internal/version"
)

const defaultMaxIngestBatch = 1000

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the facet HTTP API.
type Server struct {
	facets         *facetsuc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	maxIngestBatch int
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(facets *facetsuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		facets:         facets,
		health:         health,
		logger:         logger,
		maxIngestBatch: defaultMaxIngestBatch,
	}
	s.errorHandlers = []errorHandler{
		shardFailedHandler,
		validationHandler(domain.ErrInvalidRequest),
		validationHandler(domain.ErrConflictingPrecision),
		sentinelHandler(domain.ErrUnknownShard, http.StatusNotFound, ErrorCodeShardNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
	}
	return s
}

// WithMaxIngestBatch caps the documents accepted per ingest call.
func (s *Server) WithMaxIngestBatch(n int) *Server {
	if n > 0 {
		s.maxIngestBatch = n
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/facets", s.Facets)
		r.Post("/combine", s.Combine)
		r.Route("/shards/{shard}", func(r chi.Router) {
			r.Post("/facets", s.ShardFacets)
			r.Post("/documents", s.IngestDocuments)
			r.Post("/reload", s.ReloadShard)
			r.Delete("/", s.DropShard)
		})
	})
}

// Facets handles POST /v1/facets.
func (s *Server) Facets(w http.ResponseWriter, r *http.Request) {
	var body FacetsRequest
	req, ok := s.decodeFacets(w, r, &body)
	if !ok {
		return
	}
	resp, err := s.facets.Facets(r.Context(), body.Match.matcher(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ShardFacets handles POST /v1/shards/{shard}/facets.
func (s *Server) ShardFacets(w http.ResponseWriter, r *http.Request) {
	id, ok := shardParam(w, r)
	if !ok {
		return
	}
	var body FacetsRequest
	req, ok := s.decodeFacets(w, r, &body)
	if !ok {
		return
	}
	resp, err := s.facets.ShardFacets(r.Context(), id, body.Match.matcher(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Combine handles POST /v1/combine.
func (s *Server) Combine(w http.ResponseWriter, r *http.Request) {
	var body CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req, err := facet.NewRequest(body.Counts, body.Stats)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp, err := s.facets.Combine(r.Context(), req, body.Responses, body.TotalShards)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// IngestDocuments handles POST /v1/shards/{shard}/documents.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := shardParam(w, r)
	if !ok {
		return
	}
	var body IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Documents) > s.maxIngestBatch {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(body.Documents), s.maxIngestBatch))
		return
	}
	ids, err := s.facets.Ingest(r.Context(), id, body.Documents, body.Fields)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IngestResponse{Shard: id, IDs: ids})
}

// ReloadShard handles POST /v1/shards/{shard}/reload.
func (s *Server) ReloadShard(w http.ResponseWriter, r *http.Request) {
	id, ok := shardParam(w, r)
	if !ok {
		return
	}
	if err := s.facets.Reload(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DropShard handles DELETE /v1/shards/{shard}.
func (s *Server) DropShard(w http.ResponseWriter, r *http.Request) {
	id, ok := shardParam(w, r)
	if !ok {
		return
	}
	if err := s.facets.Drop(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:       string(report.Status),
		Checks:       checks,
		Shards:       report.Shards,
		LoadedShards: report.LoadedShards,
		Version:      version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeFacets(w http.ResponseWriter, r *http.Request, body *FacetsRequest) (facet.Request, bool) {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return facet.Request{}, false
	}
	req, err := facet.NewRequest(body.Counts, body.Stats)
	if err != nil {
		s.handleDomainError(w, r, err)
		return facet.Request{}, false
	}
	return req, true
}

func shardParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "shard")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid shard id "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrShardFailed,
		domain.ErrUnknownShard,
		domain.ErrNotFound,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler answers request validation failures with their full message.
func validationHandler(sentinel error) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return true
	}
}

// shardFailedHandler reports which shard failed a fan-out.
func shardFailedHandler(w http.ResponseWriter, err error, msg string) bool {
	var se *domain.ShardError
	if !errors.As(err, &se) {
		return false
	}
	shard := se.Shard
	writeJSON(w, http.StatusBadGateway, ErrorResponse{
		Code:    ErrorCodeShardFailed,
		Message: msg,
		Shard:   &shard,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
