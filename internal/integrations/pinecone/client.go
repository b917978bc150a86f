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

	"github.com/yuuki999/ai-line-bot/internal/domain"
)

const defaultControlURL = "https://api.pinecone.io"

// ErrIndexNotFound is returned by DescribeIndex when the index does not exist.
var ErrIndexNotFound = errors.New("pinecone: index not found")

// Vector is one upsert entry. Metadata carries the chunk text under "content".
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// queryRequest is the data-plane /query request shape. Raw vector values are
// never requested back.
type queryRequest struct {
	Namespace       string    `json:"namespace"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

type upsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace"`
}

// createIndexRequest is the control-plane index creation shape (serverless).
type createIndexRequest struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Spec      indexSpec `json:"spec"`
}

type indexSpec struct {
	Serverless serverlessSpec `json:"serverless"`
}

type serverlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

// IndexDescription is the subset of the describe response the bootstrap needs.
type IndexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("pinecone: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused Pinecone REST client. Data-plane calls (Query, Upsert)
// require an index host; control-plane calls (CreateIndex, DescribeIndex) go
// to the management endpoint.
type Client struct {
	apiKey     string
	indexHost  string
	controlURL string
	httpClient *http.Client
}

type Option func(*Client)

// WithIndexHost sets the data-plane host of an existing index, e.g.
// "https://quickstart-abc123.svc.aped-4627-b74a.pinecone.io".
func WithIndexHost(host string) Option {
	return func(c *Client) {
		c.indexHost = strings.TrimSpace(host)
	}
}

func WithControlURL(url string) Option {
	return func(c *Client) {
		c.controlURL = strings.TrimSpace(url)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client authorized with the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pinecone: api key must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		controlURL: defaultControlURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) dataURL(path string) (string, error) {
	host := strings.TrimRight(c.indexHost, "/")
	if host == "" {
		return "", errors.New("pinecone: index host must be configured for data-plane calls")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path, nil
}

func (c *Client) controlEndpoint(path string) string {
	base := strings.TrimRight(c.controlURL, "/")
	if base == "" {
		base = defaultControlURL
	}
	return base + path
}

// Query returns the nearest neighbors of vector within namespace, with
// metadata and without raw values. Matches come back ordered by descending
// score.
func (c *Client) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.RetrievalMatch, error) {
	if len(vector) == 0 {
		return nil, errors.New("pinecone: query vector must not be empty")
	}
	if topK <= 0 {
		return nil, errors.New("pinecone: topK must be positive")
	}

	url, err := c.dataURL("/query")
	if err != nil {
		return nil, err
	}

	raw, err := c.doJSON(ctx, http.MethodPost, url, queryRequest{
		Namespace:       namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		IncludeValues:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: query failed: %w", err)
	}

	var payload queryResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("pinecone: decode query response: %w", decErr)
	}

	matches := make([]domain.RetrievalMatch, 0, len(payload.Matches))
	for _, m := range payload.Matches {
		matches = append(matches, domain.RetrievalMatch{
			ID:      m.ID,
			Score:   m.Score,
			Content: m.Metadata["content"],
		})
	}
	return matches, nil
}

// Upsert writes vectors into namespace. Upserted entries are immutable from
// the relay's point of view; re-ingesting generates fresh IDs.
func (c *Client) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return errors.New("pinecone: vectors must not be empty")
	}

	url, err := c.dataURL("/vectors/upsert")
	if err != nil {
		return err
	}

	if _, err := c.doJSON(ctx, http.MethodPost, url, upsertRequest{
		Vectors:   vectors,
		Namespace: namespace,
	}); err != nil {
		return fmt.Errorf("pinecone: upsert failed: %w", err)
	}
	return nil
}

// CreateIndex creates a serverless index with cosine metric.
func (c *Client) CreateIndex(ctx context.Context, name string, dimension int, cloud, region string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("pinecone: index name must not be empty")
	}
	if dimension <= 0 {
		return errors.New("pinecone: dimension must be positive")
	}

	url := c.controlEndpoint("/indexes")
	if _, err := c.doJSON(ctx, http.MethodPost, url, createIndexRequest{
		Name:      name,
		Dimension: dimension,
		Metric:    "cosine",
		Spec:      indexSpec{Serverless: serverlessSpec{Cloud: cloud, Region: region}},
	}); err != nil {
		return fmt.Errorf("pinecone: create index failed: %w", err)
	}
	return nil
}

// DescribeIndex returns the current description of an index, or
// ErrIndexNotFound when it does not exist.
func (c *Client) DescribeIndex(ctx context.Context, name string) (IndexDescription, error) {
	if strings.TrimSpace(name) == "" {
		return IndexDescription{}, errors.New("pinecone: index name must not be empty")
	}

	url := c.controlEndpoint("/indexes/" + name)
	raw, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return IndexDescription{}, ErrIndexNotFound
		}
		return IndexDescription{}, fmt.Errorf("pinecone: describe index failed: %w", err)
	}

	var desc IndexDescription
	if decErr := json.Unmarshal(raw, &desc); decErr != nil {
		return IndexDescription{}, fmt.Errorf("pinecone: decode index description: %w", decErr)
	}
	return desc, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
