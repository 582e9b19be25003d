package llm

// ChatRequest represents a provider-agnostic chat completion request.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "gemma3:latest"). Empty means the
	// provider's configured default.
	Model string `json:"model,omitempty"`

	// Conversation messages, oldest first.
	Messages []Message `json:"messages"`
}

// NewPromptRequest builds a single-turn request from a bare user prompt.
// This mirrors the shape of the API's query endpoints, which accept one
// prompt per request rather than a running conversation.
func NewPromptRequest(model, prompt string) ChatRequest {
	return ChatRequest{
		Model:    model,
		Messages: []Message{NewMessage(RoleUser, prompt)},
	}
}
