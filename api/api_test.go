package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/llm/provider/echo"
	"github.com/parleylabs/parley/pkg/logger"
	"github.com/parleylabs/parley/pkg/sse"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

// failingProvider always errors, for exercising the failure paths.
type failingProvider struct {
	err error
}

func (p *failingProvider) Name() string { return "failing" }

func (p *failingProvider) Chat(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{}, p.err
}

func (p *failingProvider) ChatStream(context.Context, llm.ChatRequest, llm.StreamHandler) (llm.ChatResponse, error) {
	return llm.ChatResponse{}, p.err
}

// partialProvider emits some deltas and then errors mid-stream.
type partialProvider struct {
	deltas []string
	err    error
}

func (p *partialProvider) Name() string { return "partial" }

func (p *partialProvider) Chat(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{}, p.err
}

func (p *partialProvider) ChatStream(_ context.Context, _ llm.ChatRequest, handle llm.StreamHandler) (llm.ChatResponse, error) {
	for _, delta := range p.deltas {
		if err := handle(delta); err != nil {
			return llm.ChatResponse{}, err
		}
	}
	return llm.ChatResponse{}, p.err
}

func postJSON(server *Server, path, body string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return server.app.Test(req, -1)
}

var _ = Describe("Server", func() {
	var server *Server

	BeforeEach(func() {
		server = NewServer(Config{ListenAddr: ":0"}, echo.New(), logger.Nop())
	})

	Describe("GET /health", func() {
		It("reports a healthy service", func() {
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["status"]).To(Equal("healthy"))
			Expect(body["service"]).To(Equal(ServiceName))
			Expect(body["version"]).NotTo(BeEmpty())
		})
	})

	Describe("POST /query", func() {
		It("returns the full answer with the model name", func() {
			resp, err := postJSON(server, "/query", `{"prompt": "hello"}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body AnswerResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Answer).To(Equal("Echo: hello"))
			Expect(body.Model).To(Equal(echo.Model))
		})

		It("rejects a missing prompt", func() {
			resp, err := postJSON(server, "/query", `{}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body llm.ErrorResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Error).To(ContainSubstring("prompt is required"))
		})

		It("rejects a malformed body", func() {
			resp, err := postJSON(server, "/query", `{not json`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("surfaces provider failures as a 500 with an error body", func() {
			server = NewServer(Config{ListenAddr: ":0"}, &failingProvider{err: errors.New("boom")}, logger.Nop())

			resp, err := postJSON(server, "/query", `{"prompt": "hello"}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

			var body llm.ErrorResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Error).To(Equal("llm processing failed: boom"))
		})
	})

	Describe("POST /query/stream", func() {
		It("streams the answer as SSE frames with a trailing blank frame", func() {
			resp, err := postJSON(server, "/query/stream", `{"prompt": "hello world"}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			body := string(raw)
			Expect(body).To(HavePrefix("data: Echo:\n\n"))
			Expect(body).To(HaveSuffix("\n\n"))
			Expect(body).NotTo(ContainSubstring("[ERROR:"))
		})

		It("produces frames the assembler reconstructs into the full answer", func() {
			resp, err := postJSON(server, "/query/stream", `{"prompt": "hello world"}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			outcome := sse.Assemble(resp.Body, nil)
			Expect(outcome.Complete()).To(BeTrue())
			Expect(outcome.Text).To(Equal("Echo: hello world"))
		})

		It("emits an error frame when the provider fails before any delta", func() {
			server = NewServer(Config{ListenAddr: ":0"}, &failingProvider{err: errors.New("upstream unavailable")}, logger.Nop())

			resp, err := postJSON(server, "/query/stream", `{"prompt": "hello"}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("data: [ERROR: upstream unavailable]\n\n"))
		})

		It("keeps already-streamed deltas ahead of a mid-stream error frame", func() {
			prov := &partialProvider{deltas: []string{"The answer", " is"}, err: errors.New("connection reset")}
			server = NewServer(Config{ListenAddr: ":0"}, prov, logger.Nop())

			resp, err := postJSON(server, "/query/stream", `{"prompt": "hello"}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			outcome := sse.Assemble(resp.Body, nil)
			Expect(outcome.Complete()).To(BeTrue())
			Expect(outcome.Text).To(Equal("The answer is[ERROR: connection reset]"))
		})

		It("rejects a missing prompt without starting a stream", func() {
			resp, err := postJSON(server, "/query/stream", `{}`)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
