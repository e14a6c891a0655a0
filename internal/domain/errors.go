package domain

import "errors"

var (
	// ErrNotConfigured signals that the vector-store provider credential is absent.
	ErrNotConfigured = errors.New("vector store is not configured")
	// ErrEmptyQuery signals an empty or whitespace-only search query.
	ErrEmptyQuery = errors.New("search query cannot be empty")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorStoreError signals a vector index failure.
	ErrVectorStoreError = errors.New("vector store error")
)
