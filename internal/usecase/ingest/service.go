// Package ingest implements the store pipeline: extract texts, batch-embed
// them as passages, pair vectors to documents, and upsert into the index.
package ingest

import (
	"context"
	"fmt"

	"github.com/contentbridge/pinebridge/internal/domain"
	"github.com/contentbridge/pinebridge/internal/domain/article"
)

// Summary reports one store operation. UpsertedCount is the store's own
// claim and ArticlesProcessed the local document count; the two may differ
// and are surfaced side by side, never reconciled.
type Summary struct {
	Success           bool
	UpsertedCount     int
	ArticlesProcessed int
	EmbeddingModel    string
}

// Service handles article ingestion. A nil index or embedder means the
// provider credential was never configured; every call then fails with
// domain.ErrNotConfigured before reaching the network.
type Service struct {
	index Index
	embed Embedder
	model string
}

// New creates an ingest service. index and embed may be nil when the
// provider is unconfigured.
func New(index Index, embed Embedder, model string) *Service {
	return &Service{index: index, embed: embed, model: model}
}

// Store embeds and upserts the batch in two provider calls. There is no
// retry and no rollback: a failure after the embed call leaves the index in
// whatever state the store reports.
func (s *Service) Store(ctx context.Context, docs []article.Prepared) (Summary, error) {
	if s.index == nil || s.embed == nil {
		return Summary{}, domain.ErrNotConfigured
	}

	if len(docs) == 0 {
		return Summary{Success: true, EmbeddingModel: s.model}, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return Summary{}, fmt.Errorf("embed articles: %w", err)
	}

	// Vectors pair with documents by position; the provider contract is
	// order preservation, and the count is checked so a violation fails
	// loudly instead of storing mis-assigned vectors.
	if len(res.Embeddings) != len(docs) {
		return Summary{}, fmt.Errorf(
			"embed articles: got %d vectors for %d documents: %w",
			len(res.Embeddings), len(docs), domain.ErrEmbeddingProviderError,
		)
	}

	entries := make([]domain.IndexEntry, len(docs))
	for i, doc := range docs {
		entries[i] = domain.IndexEntry{
			ID:       doc.ID,
			Values:   res.Embeddings[i],
			Metadata: doc.Metadata,
		}
	}

	stats, err := s.index.Upsert(ctx, entries)
	if err != nil {
		return Summary{}, fmt.Errorf("upsert articles: %w", err)
	}

	return Summary{
		Success:           true,
		UpsertedCount:     stats.UpsertedCount,
		ArticlesProcessed: len(docs),
		EmbeddingModel:    s.model,
	}, nil
}
