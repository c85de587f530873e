package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medkey/internal/retrieval"
)

const defaultHTTPTimeout = 15 * time.Second

// Client talks to one Pinecone index host.
type Client struct {
	apiKey     string
	host       string
	namespace  string
	httpClient *http.Client
}

var _ retrieval.VectorIndex = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Pinecone data-plane client. host is the index endpoint
// (e.g. "https://medical-exams-xxxx.svc.region.pinecone.io").
func New(apiKey, host, namespace string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pinecone api key required")
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("pinecone index host required")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	c := &Client{
		apiKey:     apiKey,
		host:       strings.TrimRight(host, "/"),
		namespace:  strings.TrimSpace(namespace),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type queryRequest struct {
	Namespace       string    `json:"namespace,omitempty"`
	TopK            int       `json:"topK"`
	Vector          []float32 `json:"vector"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

// QueryVector runs a similarity search and returns the raw index matches.
func (c *Client) QueryVector(ctx context.Context, vector []float32, k int) ([]retrieval.Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector must not be empty")
	}
	if k <= 0 {
		k = 1
	}
	payload := queryRequest{
		Namespace:       c.namespace,
		TopK:            k,
		Vector:          vector,
		IncludeMetadata: true,
	}
	var decoded queryResponse
	if err := c.post(ctx, "/query", payload, &decoded); err != nil {
		return nil, err
	}
	matches := make([]retrieval.Match, 0, len(decoded.Matches))
	for _, m := range decoded.Matches {
		matches = append(matches, retrieval.Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return matches, nil
}

// Vector is one upsert payload entry.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Namespace string   `json:"namespace,omitempty"`
	Vectors   []Vector `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert writes vectors into the index.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	payload := upsertRequest{Namespace: c.namespace, Vectors: vectors}
	var decoded upsertResponse
	if err := c.post(ctx, "/vectors/upsert", payload, &decoded); err != nil {
		return 0, err
	}
	return decoded.UpsertedCount, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pinecone request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("pinecone request: new request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pinecone request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("pinecone request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("pinecone request: decode response: %w", err)
	}
	return nil
}
