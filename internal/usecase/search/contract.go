package search

import (
	"context"

	"github.com/contentbridge/pinebridge/internal/domain"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index runs nearest-neighbor lookups against the external store.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error)
}
