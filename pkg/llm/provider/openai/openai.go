// Package openai implements the provider interface against any
// OpenAI-compatible chat completions endpoint (OpenAI itself, Azure
// OpenAI-compatible gateways, Ollama's /v1 surface, vLLM, etc.).
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parleylabs/parley/pkg/llm"
)

// Name is the canonical provider name.
const Name = "openai"

const chatCompletionsPath = "/v1/chat/completions"

// doneSentinel terminates an OpenAI SSE stream.
const doneSentinel = "[DONE]"

// Config holds the settings for an OpenAI-compatible client.
type Config struct {
	// BaseURL is the scheme+host of the endpoint, without the
	// /v1/chat/completions path.
	BaseURL string

	// Token is the bearer token sent as Authorization.
	Token string

	// Model is the default model used when a request names none.
	Model string

	// HTTPClient overrides the default client (mainly for tests).
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openai base url is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openai model is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// LLM responses can be slow
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}

	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		model:      model,
		httpClient: httpClient,
	}, nil
}

// Name implements the provider interface.
func (c *Client) Name() string { return Name }

// Chat performs a non-streaming completion.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	payload := chatRequest{
		Model:    c.resolveModel(req.Model),
		Messages: toWireMessages(req.Messages),
	}

	httpResp, err := c.post(ctx, payload, false)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return llm.ChatResponse{}, readError(httpResp.Body, httpResp.StatusCode)
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return llm.ChatResponse{}, fmt.Errorf("openai error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, errors.New("openai response has no choices")
	}

	return llm.ChatResponse{
		Model:        resp.Model,
		Content:      resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}

// ChatStream performs a streaming completion, scanning the SSE chunk
// stream and forwarding each content delta to handle.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest, handle llm.StreamHandler) (llm.ChatResponse, error) {
	payload := chatRequest{
		Model:    c.resolveModel(req.Model),
		Messages: toWireMessages(req.Messages),
		Stream:   true,
	}

	httpResp, err := c.post(ctx, payload, true)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return llm.ChatResponse{}, readError(httpResp.Body, httpResp.StatusCode)
	}

	var content strings.Builder
	var model, finishReason string

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == doneSentinel {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return llm.ChatResponse{}, fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return llm.ChatResponse{}, fmt.Errorf("openai error: %s", chunk.Error.Message)
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if chunk.Choices[0].FinishReason != "" {
			finishReason = chunk.Choices[0].FinishReason
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if handle != nil {
			if err := handle(delta); err != nil {
				return llm.ChatResponse{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("read stream: %w", err)
	}

	return llm.ChatResponse{
		Model:        model,
		Content:      content.String(),
		FinishReason: finishReason,
	}, nil
}

func (c *Client) resolveModel(override string) string {
	if strings.TrimSpace(override) == "" {
		return c.model
	}
	return override
}

func (c *Client) post(ctx context.Context, payload chatRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	return httpResp, nil
}

// readError drains an error response body into a useful error value,
// preferring the structured message when the body parses as the OpenAI
// error envelope.
func readError(body io.Reader, status int) error {
	raw, err := io.ReadAll(io.LimitReader(body, 32*1024))
	if err != nil {
		return fmt.Errorf("openai returned status %d", status)
	}

	var envelope chatResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("openai returned status %d: %s", status, envelope.Error.Message)
	}
	return fmt.Errorf("openai returned status %d: %s", status, strings.TrimSpace(string(raw)))
}
