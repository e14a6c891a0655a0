package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentbridge/pinebridge/internal/domain"
)

func embedServer(t *testing.T, wantInputType string, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model      string `json:"model"`
			Parameters struct {
				InputType string `json:"input_type"`
				Truncate  string `json:"truncate"`
			} `json:"parameters"`
			Inputs []struct {
				Text string `json:"text"`
			} `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "multilingual-e5-large" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Parameters.InputType != wantInputType {
			t.Errorf("input_type = %q, expected %q", req.Parameters.InputType, wantInputType)
		}
		if req.Parameters.Truncate != "END" {
			t.Errorf("truncate = %q", req.Parameters.Truncate)
		}
		if len(req.Inputs) != len(vectors) {
			t.Errorf("got %d inputs, expected %d", len(req.Inputs), len(vectors))
		}

		data := make([]map[string]any, len(vectors))
		for i, v := range vectors {
			data[i] = map[string]any{"values": v}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": req.Model,
			"data":  data,
			"usage": map[string]int{"total_tokens": 7},
		})
	}))
}

func TestEmbedder_BatchEmbed_Passage(t *testing.T) {
	server := embedServer(t, "passage", [][]float32{{0.1, 0.2}, {0.3, 0.4}})
	defer server.Close()

	emb := NewEmbedder(testClient(server.URL, ""), "multilingual-e5-large", InputTypePassage)

	result, err := emb.BatchEmbed(context.Background(), []string{"first article", "second article"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}

	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	if result.Embeddings[0][0] != 0.1 || result.Embeddings[1][0] != 0.3 {
		t.Errorf("embeddings out of order: %v", result.Embeddings)
	}
	if result.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, expected 7", result.TotalTokens)
	}
}

func TestEmbedder_Embed_Query(t *testing.T) {
	server := embedServer(t, "query", [][]float32{{0.5, 0.6}})
	defer server.Close()

	emb := NewEmbedder(testClient(server.URL, ""), "multilingual-e5-large", InputTypeQuery)

	result, err := emb.Embed(context.Background(), "search terms")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != 2 || result.Embedding[0] != 0.5 {
		t.Errorf("unexpected embedding: %v", result.Embedding)
	}
}

func TestEmbedder_BatchEmbed_Empty(t *testing.T) {
	emb := NewEmbedder(testClient("http://unused", ""), "multilingual-e5-large", InputTypePassage)

	result, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embeddings != nil {
		t.Errorf("expected nil embeddings for empty input, got %v", result.Embeddings)
	}
}

func TestEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"values": []float32{0.1}}},
			"usage": map[string]int{"total_tokens": 3},
		})
	}))
	defer server.Close()

	emb := NewEmbedder(testClient(server.URL, ""), "multilingual-e5-large", InputTypePassage)

	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "rate limit exceeded"})
	}))
	defer server.Close()

	emb := NewEmbedder(testClient(server.URL, ""), "multilingual-e5-large", InputTypeQuery)

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError in chain, got %v", err)
	}
	if apiErr.Message != "rate limit exceeded" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}
