package api

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/parleylabs/parley/pkg/llm"
)

// QueryRequest is the body of the query endpoints.
type QueryRequest struct {
	// Prompt is the user's question or instruction.
	Prompt string `json:"prompt"`
}

// AnswerResponse is the body of a successful non-streaming query.
type AnswerResponse struct {
	Model  string `json:"model"`
	Answer string `json:"answer"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": ServiceName,
		"version": Version,
	})
}

// handleQuery accepts a prompt, calls the LLM, and returns the full answer.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	req, err := parseQueryRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.provider.Chat(c.Context(), llm.NewPromptRequest("", req.Prompt))
	if err != nil {
		s.logger.Error("chat completion failed", "provider", s.provider.Name(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
			Error: fmt.Sprintf("llm processing failed: %v", err),
		})
	}

	return c.JSON(AnswerResponse{
		Model:  resp.Model,
		Answer: resp.Content,
	})
}

// handleQueryStream accepts a prompt and streams the answer token-by-token
// as Server-Sent Events: one "data: <token>\n\n" frame per delta, a blank
// frame on completion, and a "data: [ERROR: <message>]\n\n" frame if the
// provider fails mid-stream.
func (s *Server) handleQueryStream(c *fiber.Ctx) error {
	req, err := parseQueryRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter buffers chunks through an internal PipeConns, so
	// Flush() in the callback does not reach the TCP socket per chunk. With
	// io.Pipe, pw.Write blocks until fasthttp's chunked writer consumes and
	// flushes the data, giving true per-token streaming with backpressure.
	pr, pw := io.Pipe()
	go s.streamToPipe(pw, req.Prompt)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamToPipe runs the provider stream and writes SSE frames to the pipe.
// It runs in its own goroutine with context.Background() because fasthttp
// recycles its RequestCtx after the handler returns, while this keeps
// writing until the stream ends.
func (s *Server) streamToPipe(pw *io.PipeWriter, prompt string) {
	defer pw.Close()

	_, err := s.provider.ChatStream(context.Background(), llm.NewPromptRequest("", prompt), func(delta string) error {
		if delta == "" {
			return nil
		}
		_, werr := fmt.Fprintf(pw, "data: %s\n\n", delta)
		return werr
	})
	if err != nil {
		s.logger.Error("streaming completion failed", "provider", s.provider.Name(), "error", err)
		// The error frame is ordinary stream text to the consumer; callers
		// that want to recognize it do so on their side.
		fmt.Fprintf(pw, "data: [ERROR: %v]\n\n", err)
		return
	}

	// Blank frame signals completion.
	fmt.Fprint(pw, "\n\n")
}

func parseQueryRequest(c *fiber.Ctx) (*QueryRequest, error) {
	req := &QueryRequest{}
	if err := c.BodyParser(req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	return req, nil
}
