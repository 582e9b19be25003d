package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/llm/provider/openai"
)

func newTestClient(url string) *openai.Client {
	client, err := openai.NewClient(openai.Config{
		BaseURL: url,
		Token:   "test-token",
		Model:   "test-model",
	})
	Expect(err).NotTo(HaveOccurred())
	return client
}

var _ = Describe("NewClient", func() {
	It("rejects an empty base URL", func() {
		_, err := openai.NewClient(openai.Config{Model: "m"})
		Expect(err).To(MatchError(ContainSubstring("base url")))
	})

	It("rejects an empty model", func() {
		_, err := openai.NewClient(openai.Config{BaseURL: "http://localhost"})
		Expect(err).To(MatchError(ContainSubstring("model")))
	})

	It("allows an empty token for keyless local endpoints", func() {
		_, err := openai.NewClient(openai.Config{BaseURL: "http://localhost:11434", Model: "m"})
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Chat", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)
	})

	It("sends the configured model and bearer token", func() {
		var gotAuth, gotModel string
		handler = func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			gotModel, _ = body["model"].(string)
			fmt.Fprint(w, `{"model":"test-model","choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)
		}

		resp, err := newTestClient(server.URL).Chat(context.Background(), llm.NewPromptRequest("", "hello"))
		Expect(err).NotTo(HaveOccurred())
		Expect(gotAuth).To(Equal("Bearer test-token"))
		Expect(gotModel).To(Equal("test-model"))
		Expect(resp.Content).To(Equal("hi"))
		Expect(resp.FinishReason).To(Equal("stop"))
	})

	It("lets a request override the default model", func() {
		var gotModel string
		handler = func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			gotModel, _ = body["model"].(string)
			fmt.Fprint(w, `{"model":"other","choices":[{"message":{"content":"ok"}}]}`)
		}

		_, err := newTestClient(server.URL).Chat(context.Background(), llm.NewPromptRequest("other", "hello"))
		Expect(err).NotTo(HaveOccurred())
		Expect(gotModel).To(Equal("other"))
	})

	It("surfaces the structured error message on failure status", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"bad api key","type":"invalid_request_error"}}`)
		}

		_, err := newTestClient(server.URL).Chat(context.Background(), llm.NewPromptRequest("", "hello"))
		Expect(err).To(MatchError(ContainSubstring("bad api key")))
		Expect(err).To(MatchError(ContainSubstring("401")))
	})

	It("errors when the response has no choices", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"model":"test-model","choices":[]}`)
		}

		_, err := newTestClient(server.URL).Chat(context.Background(), llm.NewPromptRequest("", "hello"))
		Expect(err).To(MatchError(ContainSubstring("no choices")))
	})
})

var _ = Describe("ChatStream", func() {
	var server *httptest.Server

	streamBody := func(frames ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, f := range frames {
				fmt.Fprintf(w, "data: %s\n\n", f)
			}
		}
	}

	chunk := func(content, finish string) string {
		return fmt.Sprintf(`{"model":"test-model","choices":[{"delta":{"content":%q},"finish_reason":%q}]}`, content, finish)
	}

	It("assembles deltas and forwards each to the handler", func() {
		server = httptest.NewServer(streamBody(
			chunk("Hel", ""),
			chunk("lo", ""),
			chunk("", "stop"),
			"[DONE]",
		))
		DeferCleanup(server.Close)

		var deltas []string
		resp, err := newTestClient(server.URL).ChatStream(context.Background(),
			llm.NewPromptRequest("", "hi"),
			func(delta string) error {
				deltas = append(deltas, delta)
				return nil
			})

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("Hello"))
		Expect(resp.FinishReason).To(Equal("stop"))
		Expect(deltas).To(Equal([]string{"Hel", "lo"}))
	})

	It("stops the stream when the handler errors", func() {
		server = httptest.NewServer(streamBody(chunk("a", ""), chunk("b", ""), "[DONE]"))
		DeferCleanup(server.Close)

		_, err := newTestClient(server.URL).ChatStream(context.Background(),
			llm.NewPromptRequest("", "hi"),
			func(string) error { return fmt.Errorf("display gone") })

		Expect(err).To(MatchError(ContainSubstring("display gone")))
	})

	It("surfaces in-stream error envelopes", func() {
		server = httptest.NewServer(streamBody(`{"error":{"message":"overloaded"}}`))
		DeferCleanup(server.Close)

		_, err := newTestClient(server.URL).ChatStream(context.Background(),
			llm.NewPromptRequest("", "hi"), nil)

		Expect(err).To(MatchError(ContainSubstring("overloaded")))
	})

	It("works without a handler", func() {
		server = httptest.NewServer(streamBody(chunk("fine", "stop"), "[DONE]"))
		DeferCleanup(server.Close)

		resp, err := newTestClient(server.URL).ChatStream(context.Background(),
			llm.NewPromptRequest("", "hi"), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("fine"))
	})
})
