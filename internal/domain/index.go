package domain

import "context"

// IndexEntry is one (id, vector, metadata) triple to upsert into the
// external index. Metadata must be JSON-serializable; the gateway never
// inspects it.
type IndexEntry struct {
	ID       string
	Values   []float32
	Metadata any
}

// UpsertStats is what the store claims it did. The claimed count may differ
// from the number of entries submitted; both are surfaced to the caller.
type UpsertStats struct {
	UpsertedCount int
}

// Match is one ranked search hit as returned by the store. Metadata is nil
// when the store returned none or the caller did not ask for it.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// VectorIndex is the contract with the external managed vector store.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []IndexEntry) (UpsertStats, error)
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error)
}
