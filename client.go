// Package pinebridge is a Go client for the Drupal-to-Pinecone gateway API.
package pinebridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a running gateway over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New creates a gateway client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Node is one Drupal article record in JSON:API shape.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Attributes NodeAttributes `json:"attributes"`
}

// NodeAttributes carries the article fields the gateway understands.
type NodeAttributes struct {
	Title   string    `json:"title"`
	Body    *NodeBody `json:"body,omitempty"`
	Created *string   `json:"created,omitempty"`
	Changed *string   `json:"changed,omitempty"`
	Status  *bool     `json:"status,omitempty"`
}

// NodeBody is the rendered article body.
type NodeBody struct {
	Value  string `json:"value"`
	Format string `json:"format,omitempty"`
}

// StoreResult reports one store operation as the gateway returned it.
type StoreResult struct {
	Success           bool   `json:"success"`
	UpsertedCount     int    `json:"upserted_count"`
	ArticlesProcessed int    `json:"articles_processed"`
	EmbeddingModel    string `json:"embedding_model"`
}

// StoreNodeResponse is the gateway's answer to a single-node store.
type StoreNodeResponse struct {
	Message string      `json:"message"`
	NodeID  string      `json:"node_id"`
	Result  StoreResult `json:"result"`
}

// StoreNodesResponse is the gateway's answer to a batch store.
type StoreNodesResponse struct {
	Message    string      `json:"message"`
	NodesCount int         `json:"nodes_count"`
	Result     StoreResult `json:"result"`
}

// SearchResult is one match of a similarity search.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResponse is the gateway's answer to a search.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// SearchOptions tunes a search request. The zero value uses the gateway's
// defaults.
type SearchOptions struct {
	TopK            int
	ExcludeMetadata bool
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinebridge: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// StoreNode sends one article for embedding and storage.
func (c *Client) StoreNode(ctx context.Context, node Node) (StoreNodeResponse, error) {
	var resp StoreNodeResponse
	err := c.do(ctx, http.MethodPost, "/store-node", map[string]any{"data": node}, &resp)
	return resp, err
}

// StoreNodes sends a batch of articles in one round trip. An empty batch is
// acknowledged by the gateway without touching the vector store.
func (c *Client) StoreNodes(ctx context.Context, nodes []Node) (StoreNodesResponse, error) {
	if nodes == nil {
		nodes = []Node{}
	}
	var resp StoreNodesResponse
	err := c.do(ctx, http.MethodPost, "/store-nodes", nodes, &resp)
	return resp, err
}

// Search runs a similarity search over the stored articles.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (SearchResponse, error) {
	params := url.Values{"query": []string{query}}
	if opts.TopK > 0 {
		params.Set("top_k", strconv.Itoa(opts.TopK))
	}
	if opts.ExcludeMetadata {
		params.Set("include_metadata", "false")
	}

	var resp SearchResponse
	err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &resp)
	return resp, err
}

// Health checks that the gateway is up.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("pinebridge: unexpected health status %q", resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("pinebridge: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("pinebridge: new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("pinebridge: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("pinebridge: decode response: %w", err)
		}
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var wire struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &wire) == nil && wire.Code != "" {
		apiErr.Code = wire.Code
		apiErr.Message = wire.Message
		return apiErr
	}

	apiErr.Code = "unknown"
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}
