// Package chi exposes the gateway's HTTP surface.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/contentbridge/pinebridge/internal/domain"
	"github.com/contentbridge/pinebridge/internal/domain/article"
	"github.com/contentbridge/pinebridge/internal/logger"
	ingestuc "github.com/contentbridge/pinebridge/internal/usecase/ingest"
	searchuc "github.com/contentbridge/pinebridge/internal/usecase/search"
)

// ServiceName identifies this service in health responses.
const ServiceName = "drupal-pinecone-api"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers for the gateway endpoints.
type Server struct {
	ingest        *ingestuc.Service
	search        *searchuc.Service
	defaultTopK   int
	maxTopK       int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(ingest *ingestuc.Service, search *searchuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		ingest:      ingest,
		search:      search,
		defaultTopK: searchuc.DefaultTopK,
		maxTopK:     100,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, "empty_query"),
		sentinelHandler(domain.ErrNotConfigured, http.StatusInternalServerError, "not_configured"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusInternalServerError, "embedding_provider_error"),
		sentinelHandler(domain.ErrVectorStoreError, http.StatusInternalServerError, "vector_store_error"),
	}
	return s
}

// WithTopKLimits configures the search result count defaults.
func (s *Server) WithTopKLimits(defaultTopK, maxTopK int) *Server {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// Routes mounts all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Post("/store-node", s.StoreNode)
	r.Post("/store-nodes", s.StoreNodes)
	r.Get("/search", s.Search)
	r.Get("/metrics", s.Metrics)
}

// --- wire shapes ---

type nodeRequest struct {
	Data article.Node `json:"data"`
}

type storeResult struct {
	Success           bool   `json:"success"`
	UpsertedCount     int    `json:"upserted_count"`
	ArticlesProcessed int    `json:"articles_processed"`
	EmbeddingModel    string `json:"embedding_model"`
}

type storeNodeResponse struct {
	Message string      `json:"message"`
	NodeID  string      `json:"node_id"`
	Result  storeResult `json:"result"`
}

type storeNodesResponse struct {
	Message    string      `json:"message"`
	NodesCount int         `json:"nodes_count"`
	Result     storeResult `json:"result"`
}

type emptyBatchResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type searchResultItem struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type searchResponse struct {
	Query        string             `json:"query"`
	Results      []searchResultItem `json:"results"`
	TotalResults int                `json:"total_results"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Drupal to Pinecone API is running",
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

// StoreNode handles POST /store-node: one article in, one embed+upsert out.
func (s *Server) StoreNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if err := req.Data.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	summary, err := s.ingest.Store(r.Context(), []article.Prepared{article.Prepare(req.Data)})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, storeNodeResponse{
		Message: "Node successfully stored in Pinecone",
		NodeID:  req.Data.ID,
		Result:  summaryToWire(summary),
	})
}

// StoreNodes handles POST /store-nodes: a batch of articles in one
// embed+upsert round trip. An empty batch is answered locally, with no
// provider call.
func (s *Server) StoreNodes(w http.ResponseWriter, r *http.Request) {
	var nodes []article.Node
	if err := json.NewDecoder(r.Body).Decode(&nodes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if len(nodes) == 0 {
		writeJSON(w, http.StatusOK, emptyBatchResponse{Message: "No nodes provided", Count: 0})
		return
	}

	for i := range nodes {
		if err := nodes[i].Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed",
				"node ["+strconv.Itoa(i)+"]: "+err.Error())
			return
		}
	}

	summary, err := s.ingest.Store(r.Context(), article.PrepareAll(nodes))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, storeNodesResponse{
		Message:    "Nodes successfully stored in Pinecone",
		NodesCount: len(nodes),
		Result:     summaryToWire(summary),
	})
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	topK := s.defaultTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "top_k must be an integer")
			return
		}
		topK = parsed
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	includeMetadata := true
	if raw := r.URL.Query().Get("include_metadata"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "include_metadata must be a boolean")
			return
		}
		includeMetadata = parsed
	}

	matches, err := s.search.Search(r.Context(), query, topK, includeMetadata)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := make([]searchResultItem, len(matches))
	for i, m := range matches {
		results[i] = searchResultItem{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func summaryToWire(sum ingestuc.Summary) storeResult {
	return storeResult{
		Success:           sum.Success,
		UpsertedCount:     sum.UpsertedCount,
		ArticlesProcessed: sum.ArticlesProcessed,
		EmbeddingModel:    sum.EmbeddingModel,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. The full wrapped message is surfaced: callers debugging a failed
// store or search get the provider's own words, not a generic stand-in.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
