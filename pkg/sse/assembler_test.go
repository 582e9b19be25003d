package sse

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// failingReader yields its data then fails with err instead of io.EOF,
// simulating a transport that drops mid-stream.
type failingReader struct {
	data string
	err  error
	pos  int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.pos < len(r.data) {
		n := copy(p, r.data[r.pos:])
		r.pos += n
		return n, nil
	}
	return 0, r.err
}

var _ = Describe("Assemble", func() {
	var updates []string

	record := func(text string) {
		updates = append(updates, text)
	}

	BeforeEach(func() {
		updates = nil
	})

	Context("with a clean stream", func() {
		It("concatenates fragments in order with no separators", func() {
			src := strings.NewReader("data: Hello\n\ndata: , world\ndata: !\n\n")
			out := Assemble(src, record)

			Expect(out.Complete()).To(BeTrue())
			Expect(out.Text).To(Equal("Hello, world!"))
		})

		It("invokes the callback once per fragment with growing text", func() {
			src := strings.NewReader("data: a\n\ndata: b\n\ndata: c\n\n")
			out := Assemble(src, record)

			Expect(out.Err).NotTo(HaveOccurred())
			Expect(updates).To(Equal([]string{"a", "ab", "abc"}))
			Expect(updates[len(updates)-1]).To(Equal(out.Text))
		})

		It("handles many frames arriving in a single read", func() {
			// One underlying read delivering several discrete lines must
			// still produce one callback per fragment.
			src := strings.NewReader("data: one\n\ndata: two\n\ndata: three\n\n")
			out := Assemble(src, record)

			Expect(out.Text).To(Equal("onetwothree"))
			Expect(updates).To(HaveLen(3))
		})

		It("completes the end-to-end hello world scenario", func() {
			lines := []string{"data: Hello", "", "data: , world", "data: !", ""}
			src := strings.NewReader(strings.Join(lines, "\n") + "\n")
			out := Assemble(src, record)

			Expect(out.Complete()).To(BeTrue())
			Expect(out.Text).To(Equal("Hello, world!"))
		})

		It("works without a callback", func() {
			src := strings.NewReader("data: fine\n\n")
			out := Assemble(src, nil)

			Expect(out.Text).To(Equal("fine"))
		})
	})

	Context("with skippable lines", func() {
		It("ignores empty fragments and does not call back for them", func() {
			src := strings.NewReader("data: x\n\ndata: \n\ndata: y\n\n")
			out := Assemble(src, record)

			Expect(out.Text).To(Equal("xy"))
			Expect(updates).To(Equal([]string{"x", "xy"}))
		})

		It("ignores comment keep-alive lines", func() {
			src := strings.NewReader(": keepalive\ndata: OK\n\n")
			out := Assemble(src, record)

			Expect(out.Text).To(Equal("OK"))
			Expect(updates).To(Equal([]string{"OK"}))
		})

		It("ignores lines without the data prefix", func() {
			src := strings.NewReader("event: message\nretry: 3000\ngarbage\ndata: kept\n\n")
			out := Assemble(src, record)

			Expect(out.Text).To(Equal("kept"))
			Expect(updates).To(HaveLen(1))
		})

		It("requires the space after the colon", func() {
			src := strings.NewReader("data:no-space\n\ndata: yes\n\n")
			out := Assemble(src, record)

			Expect(out.Text).To(Equal("yes"))
		})

		It("returns empty text for a stream of only blanks and comments", func() {
			src := strings.NewReader("\n\n: ping\n\n")
			out := Assemble(src, record)

			Expect(out.Complete()).To(BeTrue())
			Expect(out.Text).To(BeEmpty())
			Expect(updates).To(BeEmpty())
		})

		It("returns empty text on an empty stream", func() {
			out := Assemble(strings.NewReader(""), record)

			Expect(out.Complete()).To(BeTrue())
			Expect(out.Text).To(BeEmpty())
		})
	})

	Context("with a failing transport", func() {
		It("preserves partial text when the stream drops mid-way", func() {
			src := &failingReader{
				data: "data: Partial\n",
				err:  errors.New("peer closed"),
			}
			out := Assemble(src, record)

			Expect(out.Complete()).To(BeFalse())
			Expect(out.Err).To(MatchError("peer closed"))
			Expect(out.Text).To(Equal("Partial"))
			Expect(updates).To(Equal([]string{"Partial"}))
		})

		It("keeps exactly the accepted fragments at the failure point", func() {
			src := &failingReader{
				data: "data: one\n\ndata: two\n\n",
				err:  errors.New("timeout exceeded"),
			}
			out := Assemble(src, record)

			Expect(out.Err).To(MatchError("timeout exceeded"))
			Expect(out.Text).To(Equal("onetwo"))
		})

		It("returns empty partial text when the first read fails", func() {
			src := &failingReader{err: errors.New("connection refused")}
			out := Assemble(src, record)

			Expect(out.Err).To(MatchError("connection refused"))
			Expect(out.Text).To(BeEmpty())
			Expect(updates).To(BeEmpty())
		})
	})

	Context("with sentinel payloads", func() {
		It("appends error sentinels verbatim like any fragment", func() {
			// The producer reports its own failures in-band; the assembler
			// has no special casing for them.
			src := strings.NewReader("data: [ERROR: upstream unavailable]\n\n")
			out := Assemble(src, record)

			Expect(out.Complete()).To(BeTrue())
			Expect(out.Text).To(Equal("[ERROR: upstream unavailable]"))
		})
	})
})

var _ = Describe("Outcome", func() {
	It("reports completion only when no error occurred", func() {
		Expect(Outcome{Text: "done"}.Complete()).To(BeTrue())
		Expect(Outcome{Text: "part", Err: io.ErrUnexpectedEOF}.Complete()).To(BeFalse())
	})
})
