// Package provider defines the interface LLM backends implement and the
// factory that builds one from configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/llm/provider/echo"
	"github.com/parleylabs/parley/pkg/llm/provider/openai"
)

// Provider is a chat completion backend.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai", "echo").
	Name() string

	// Chat performs a blocking, non-streaming completion.
	Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)

	// ChatStream performs a streaming completion, invoking handle for each
	// content delta. The returned response carries the full assembled
	// content. handle may be nil.
	ChatStream(ctx context.Context, req llm.ChatRequest, handle llm.StreamHandler) (llm.ChatResponse, error)
}

// Config carries the provider settings resolved from config and env.
type Config struct {
	// Upstream is the provider base URL (e.g. "https://api.openai.com").
	Upstream string

	// Model is the default model name.
	Model string

	// APIKey is the bearer token, usually sourced from the environment.
	APIKey string
}

// New builds the named provider. Supported names: "openai" (any
// OpenAI-compatible chat completions endpoint) and "echo" (local, offline).
func New(name string, cfg Config) (Provider, error) {
	switch name {
	case openai.Name:
		return openai.NewClient(openai.Config{
			BaseURL: cfg.Upstream,
			Model:   cfg.Model,
			Token:   cfg.APIKey,
		})
	case echo.Name:
		return echo.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q (expected %q or %q)", name, openai.Name, echo.Name)
	}
}
