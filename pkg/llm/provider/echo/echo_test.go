package echo_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/llm/provider/echo"
)

var _ = Describe("Provider", func() {
	var p *echo.Provider

	BeforeEach(func() {
		p = echo.New()
	})

	Describe("Chat", func() {
		It("echoes the last user message", func() {
			resp, err := p.Chat(context.Background(), llm.NewPromptRequest("", "hello there"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Echo: hello there"))
			Expect(resp.Model).To(Equal(echo.Model))
		})

		It("skips assistant messages when finding the prompt", func() {
			req := llm.ChatRequest{Messages: []llm.Message{
				llm.NewMessage(llm.RoleUser, "first"),
				llm.NewMessage(llm.RoleAssistant, "Echo: first"),
			}}
			resp, err := p.Chat(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Echo: first"))
		})
	})

	Describe("ChatStream", func() {
		It("streams word deltas that reassemble to the full answer", func() {
			var deltas []string
			resp, err := p.ChatStream(context.Background(),
				llm.NewPromptRequest("", "one two three"),
				func(delta string) error {
					deltas = append(deltas, delta)
					return nil
				})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Echo: one two three"))

			var joined string
			for _, d := range deltas {
				joined += d
			}
			Expect(joined).To(Equal(resp.Content))
			Expect(len(deltas)).To(BeNumerically(">", 1))
		})

		It("aborts when the handler errors", func() {
			_, err := p.ChatStream(context.Background(),
				llm.NewPromptRequest("", "boom"),
				func(string) error { return errors.New("sink failed") })
			Expect(err).To(MatchError("sink failed"))
		})

		It("respects context cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := p.ChatStream(ctx, llm.NewPromptRequest("", "late"), func(string) error { return nil })
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
