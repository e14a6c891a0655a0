package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/contentbridge/pinebridge/internal/domain"
	"github.com/contentbridge/pinebridge/internal/metrics"
)

// Index implements domain.VectorIndex against the Pinecone data plane.
type Index struct {
	client *Client
}

// NewIndex creates a data-plane adapter for the client's configured index.
func NewIndex(client *Client) *Index {
	return &Index{client: client}
}

type upsertRequest struct {
	Vectors []upsertVector `json:"vectors"`
}

type upsertVector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata any       `json:"metadata,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert writes the batch in a single call and returns the count the store
// claims it wrote. The claim is passed through, not verified.
func (i *Index) Upsert(ctx context.Context, entries []domain.IndexEntry) (domain.UpsertStats, error) {
	host, err := i.client.indexHost(ctx)
	if err != nil {
		metrics.VectorStoreRequestsTotal.WithLabelValues("upsert", "error").Inc()
		return domain.UpsertStats{}, fmt.Errorf("%w: %w", err, domain.ErrVectorStoreError)
	}

	req := upsertRequest{Vectors: make([]upsertVector, len(entries))}
	for n, e := range entries {
		req.Vectors[n] = upsertVector{ID: e.ID, Values: e.Values, Metadata: e.Metadata}
	}

	start := time.Now()

	var resp upsertResponse
	if err := i.client.doJSON(ctx, http.MethodPost, host+"/vectors/upsert", req, &resp); err != nil {
		metrics.VectorStoreRequestsTotal.WithLabelValues("upsert", "error").Inc()
		return domain.UpsertStats{}, fmt.Errorf("upsert vectors: %w: %w", err, domain.ErrVectorStoreError)
	}

	metrics.VectorStoreRequestsTotal.WithLabelValues("upsert", "success").Inc()
	metrics.VectorStoreRequestDuration.WithLabelValues("upsert").Observe(time.Since(start).Seconds())

	return domain.UpsertStats{UpsertedCount: resp.UpsertedCount}, nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query runs a nearest-neighbor lookup and returns matches in the store's
// ranking order.
func (i *Index) Query(
	ctx context.Context, vector []float32, topK int, includeMetadata bool,
) ([]domain.Match, error) {
	host, err := i.client.indexHost(ctx)
	if err != nil {
		metrics.VectorStoreRequestsTotal.WithLabelValues("query", "error").Inc()
		return nil, fmt.Errorf("%w: %w", err, domain.ErrVectorStoreError)
	}

	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: includeMetadata,
		IncludeValues:   false,
	}

	start := time.Now()

	var resp queryResponse
	if err := i.client.doJSON(ctx, http.MethodPost, host+"/query", req, &resp); err != nil {
		metrics.VectorStoreRequestsTotal.WithLabelValues("query", "error").Inc()
		return nil, fmt.Errorf("query vectors: %w: %w", err, domain.ErrVectorStoreError)
	}

	metrics.VectorStoreRequestsTotal.WithLabelValues("query", "success").Inc()
	metrics.VectorStoreRequestDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())

	matches := make([]domain.Match, len(resp.Matches))
	for n, m := range resp.Matches {
		matches[n] = domain.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}
