package openai

import "github.com/parleylabs/parley/pkg/llm"

// chatRequest is the wire format of POST /v1/chat/completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse covers both the non-streaming response and the streaming
// chunk format; choices carry `message` in the former and `delta` in the
// latter.
type chatResponse struct {
	Model   string     `json:"model"`
	Choices []choice   `json:"choices"`
	Error   *wireError `json:"error,omitempty"`
}

type choice struct {
	Message      wireMessage `json:"message"`
	Delta        wireMessage `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func toWireMessages(messages []llm.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, wireMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
