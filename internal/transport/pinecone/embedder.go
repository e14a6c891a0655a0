package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/contentbridge/pinebridge/internal/domain"
	"github.com/contentbridge/pinebridge/internal/metrics"
)

const provider = "pinecone"

// InputType selects the embedding mode of the model: passages to be indexed
// and search queries get different internal representations.
type InputType string

const (
	// InputTypePassage embeds documents for indexing.
	InputTypePassage InputType = "passage"
	// InputTypeQuery embeds search input.
	InputTypeQuery InputType = "query"
)

// Embedder requests embeddings from the Pinecone inference API with a fixed
// input type. Construct one per mode (passage for ingestion, query for search).
type Embedder struct {
	client    *Client
	model     string
	inputType InputType
}

// NewEmbedder creates an inference API embedder.
func NewEmbedder(client *Client, model string, inputType InputType) *Embedder {
	return &Embedder{client: client, model: model, inputType: inputType}
}

type embedRequest struct {
	Model      string          `json:"model"`
	Parameters embedParameters `json:"parameters"`
	Inputs     []embedInput    `json:"inputs"`
}

type embedParameters struct {
	InputType string `json:"input_type"`
	Truncate  string `json:"truncate"`
}

type embedInput struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Values []float32 `json:"values"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed implements domain.Embedder for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder: one inference API call for the
// whole batch. Vectors are returned in input order; a count mismatch is
// rejected here rather than silently mis-paired downstream.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	req := embedRequest{
		Model: e.model,
		Parameters: embedParameters{
			InputType: string(e.inputType),
			Truncate:  "END",
		},
		Inputs: make([]embedInput, len(texts)),
	}
	for i, t := range texts {
		req.Inputs[i] = embedInput{Text: t}
	}

	start := time.Now()

	var resp embedResponse
	err := e.client.doJSON(ctx, http.MethodPost, e.client.controlURL+"/embed", req, &resp)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "api_error").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed: %w: %w", err, domain.ErrEmbeddingProviderError)
	}

	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"embed: got %d vectors for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrEmbeddingProviderError,
		)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Values
	}

	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
