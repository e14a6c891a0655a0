// Package search implements the query pipeline: validate, embed the query,
// run the similarity lookup, and reshape the matches.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/contentbridge/pinebridge/internal/domain"
)

// DefaultTopK is the result count used when the caller does not set one.
const DefaultTopK = 10

// Service handles similarity search. A nil index or embedder means the
// provider credential was never configured.
type Service struct {
	index       Index
	embed       Embedder
	defaultTopK int
}

// New creates a search service. index and embed may be nil when the
// provider is unconfigured.
func New(index Index, embed Embedder) *Service {
	return &Service{index: index, embed: embed, defaultTopK: DefaultTopK}
}

// WithDefaultTopK overrides the default result count.
func (s *Service) WithDefaultTopK(topK int) *Service {
	if topK > 0 {
		s.defaultTopK = topK
	}
	return s
}

// Search embeds the query with the query input type and returns matches in
// the store's ranking order. When includeMetadata is false, metadata is
// stripped from every match regardless of what the store returned.
func (s *Service) Search(
	ctx context.Context, query string, topK int, includeMetadata bool,
) ([]domain.Match, error) {
	if s.index == nil || s.embed == nil {
		return nil, domain.ErrNotConfigured
	}

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	if topK <= 0 {
		topK = s.defaultTopK
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.index.Query(ctx, emb.Embedding, topK, includeMetadata)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	for i := range matches {
		if !includeMetadata || len(matches[i].Metadata) == 0 {
			matches[i].Metadata = nil
		}
	}

	return matches, nil
}
