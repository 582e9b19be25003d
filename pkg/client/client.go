// Package client is the HTTP client for the parley API server. It wraps
// the health, query, and streaming query endpoints, feeding streamed
// responses through the sse assembler so callers get live updates and
// partial text on failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/logger"
	"github.com/parleylabs/parley/pkg/sse"
)

const defaultTimeout = 30 * time.Second

// Client talks to a parley API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout for non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the API server at baseURL
// (e.g. "http://localhost:8000").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// queryRequest is the body of the query endpoints.
type queryRequest struct {
	Prompt string `json:"prompt"`
}

// answerResponse is the wire shape of a successful non-streaming query.
type answerResponse struct {
	Model  string `json:"model"`
	Answer string `json:"answer"`
}

// Health checks that the API server is up and reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("unexpected health status %q", body.Status)
	}

	return nil
}

// Query sends a prompt to the non-streaming endpoint and returns the
// full answer.
func (c *Client) Query(ctx context.Context, prompt string) (llm.ChatResponse, error) {
	resp, err := c.post(ctx, "/query", prompt)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.ChatResponse{}, c.readError(resp)
	}

	var body answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("decoding answer: %w", err)
	}

	return llm.ChatResponse{
		Model:   body.Model,
		Content: body.Answer,
	}, nil
}

// QueryStream sends a prompt to the streaming endpoint and assembles the
// SSE response. onUpdate, if non-nil, receives the growing text after
// each streamed token. The returned Outcome carries the full text on
// success, or the partial text plus the transport error on failure;
// streamed tokens are never discarded.
//
// Streaming honors the caller's context deadline instead of the client
// timeout so a long response isn't cut off mid-stream by the per-request
// timer.
func (c *Client) QueryStream(ctx context.Context, prompt string, onUpdate sse.UpdateFunc) sse.Outcome {
	resp, err := c.postWith(ctx, c.streamClient(), "/query/stream", prompt)
	if err != nil {
		return sse.Outcome{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sse.Outcome{Err: c.readError(resp)}
	}

	return sse.Assemble(resp.Body, onUpdate)
}

func (c *Client) post(ctx context.Context, path, prompt string) (*http.Response, error) {
	return c.postWith(ctx, c.httpClient, path, prompt)
}

func (c *Client) postWith(ctx context.Context, hc *http.Client, path, prompt string) (*http.Response, error) {
	body, err := json.Marshal(queryRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending query", "path", path)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// streamClient is the httpClient without its overall timeout. The
// http.Client timeout covers the whole exchange including the body read,
// which would abort a slow stream partway through.
func (c *Client) streamClient() *http.Client {
	sc := *c.httpClient
	sc.Timeout = 0
	return &sc
}

// readError extracts the error message from a non-200 response body,
// falling back to the raw body and then the status code.
func (c *Client) readError(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}

	var body llm.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("api error: %s", body.Error)
	}

	return fmt.Errorf("api returned status %d: %s", resp.StatusCode, raw)
}
