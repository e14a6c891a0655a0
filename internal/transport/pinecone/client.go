// Package pinecone is a REST client for the Pinecone control plane,
// inference API, and index data plane.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// apiVersion is the Pinecone REST API version sent with every request.
const apiVersion = "2025-01"

// Config holds the Pinecone connection settings.
type Config struct {
	APIKey          string
	IndexName       string
	IndexHost       string // optional; discovered from the control plane when empty
	ControlPlaneURL string
	Timeout         time.Duration
	Logger          *zap.Logger
}

// Client talks to Pinecone over HTTPS. One client is constructed at startup
// and injected into the embedder and index adapters; it holds no per-request
// state beyond the lazily resolved index host.
type Client struct {
	apiKey     string
	indexName  string
	controlURL string
	httpc      *http.Client
	logger     *zap.Logger

	mu   sync.Mutex
	host string // data-plane base URL, cached after first resolution
}

// NewClient creates a Pinecone client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		indexName:  cfg.IndexName,
		controlURL: strings.TrimRight(cfg.ControlPlaneURL, "/"),
		httpc:      &http.Client{Timeout: timeout},
		logger:     logger,
		host:       normalizeHost(cfg.IndexHost),
	}
}

// indexHost returns the data-plane base URL for the configured index,
// resolving it from the control plane on first use. Only a successful
// resolution is cached, so a transient control-plane failure is retried
// on the next request.
func (c *Client) indexHost(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host != "" {
		return c.host, nil
	}

	var desc struct {
		Host string `json:"host"`
	}
	url := fmt.Sprintf("%s/indexes/%s", c.controlURL, c.indexName)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &desc); err != nil {
		return "", fmt.Errorf("describe index %q: %w", c.indexName, err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("describe index %q: control plane returned no host", c.indexName)
	}

	c.host = normalizeHost(desc.Host)
	c.logger.Info("Resolved index host",
		zap.String("index", c.indexName),
		zap.String("host", c.host),
	)
	return c.host, nil
}

// doJSON performs one authenticated JSON round trip. A non-2xx status is
// returned as an *APIError carrying the provider's message.
func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// APIError is a non-2xx response from Pinecone.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinecone API error %d: %s", e.StatusCode, e.Message)
}

// parseAPIError extracts a human-readable message from an error response.
// Pinecone uses both {"message": ...} and {"error": {"message": ...}} shapes.
func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var flat struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: flat.Message}
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: nested.Error.Message}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/")
}
