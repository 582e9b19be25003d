// Package api provides the HTTP API server that forwards prompts to an
// LLM provider, with streaming and non-streaming query endpoints.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string
}
