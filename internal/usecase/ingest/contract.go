package ingest

import (
	"context"

	"github.com/contentbridge/pinebridge/internal/domain"
)

// Embedder vectorizes a batch of texts in one provider call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index upserts vectors into the external store.
type Index interface {
	Upsert(ctx context.Context, entries []domain.IndexEntry) (domain.UpsertStats, error)
}
