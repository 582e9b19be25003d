package llm

// ChatResponse represents a provider-agnostic chat completion response.
type ChatResponse struct {
	// Model that generated the response.
	Model string `json:"model"`

	// Content is the assistant's full response text.
	Content string `json:"content"`

	// FinishReason reports why generation stopped (e.g. "stop", "length"),
	// when the provider supplies one.
	FinishReason string `json:"finish_reason,omitempty"`
}

// ErrorResponse is the JSON error body returned by the API server.
type ErrorResponse struct {
	Error string `json:"error"`
}
