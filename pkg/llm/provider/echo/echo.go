// Package echo implements an offline provider that answers every prompt
// with "Echo: <prompt>". It backs the parley echo agent and makes the
// rest of the stack exercisable without an API key or a network.
package echo

import (
	"context"
	"strings"

	"github.com/parleylabs/parley/pkg/llm"
)

// Name is the canonical provider name.
const Name = "echo"

// Model is the pseudo-model name reported in responses.
const Model = "echo-1"

const answerPrefix = "Echo: "

// Provider answers with an echo of the last user message.
type Provider struct{}

// New returns the echo provider.
func New() *Provider {
	return &Provider{}
}

// Name implements the provider interface.
func (p *Provider) Name() string { return Name }

// Chat echoes the last user message.
func (p *Provider) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{
		Model:        Model,
		Content:      answerPrefix + lastUserContent(req),
		FinishReason: "stop",
	}, nil
}

// ChatStream echoes the last user message one whitespace-separated token
// at a time, mimicking the cadence of a real completion stream.
func (p *Provider) ChatStream(ctx context.Context, req llm.ChatRequest, handle llm.StreamHandler) (llm.ChatResponse, error) {
	full := answerPrefix + lastUserContent(req)

	if handle != nil {
		for i, word := range strings.Split(full, " ") {
			if err := ctx.Err(); err != nil {
				return llm.ChatResponse{}, err
			}
			delta := word
			if i > 0 {
				delta = " " + word
			}
			if err := handle(delta); err != nil {
				return llm.ChatResponse{}, err
			}
		}
	}

	return llm.ChatResponse{
		Model:        Model,
		Content:      full,
		FinishReason: "stop",
	}, nil
}

// lastUserContent returns the content of the most recent user message,
// or an empty string when the request carries none.
func lastUserContent(req llm.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
