// Package sse provides a minimal, purpose-built consumer for the
// Server-Sent-Events stream emitted by the parley API's streaming query
// endpoint. It assembles the `data: <token>` frames of a chat completion
// into a single growing response string, reporting progress through a
// caller-supplied callback.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities, and it does not implement the full SSE field grammar:
// the upstream producer only ever emits `data:` frames and blank
// separators, so everything else is treated as a keep-alive and skipped.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"bufio"
	"io"
	"strings"
)

// dataPrefix is the exact frame prefix the producer emits. Only lines
// carrying this prefix contribute to the assembled response; `data:` with
// no trailing space is a different byte sequence and is skipped like any
// other non-matching line.
const dataPrefix = "data: "

// UpdateFunc receives the full accumulated response text after each
// appended fragment. It is called synchronously from Assemble, one call
// per fragment, in delivery order. Implementations typically re-render a
// live display; any typing-indicator glyph belongs in the renderer, never
// in the accumulated text itself.
type UpdateFunc func(text string)

// Outcome is the terminal result of consuming one response stream.
type Outcome struct {
	// Text is the assembled response. When Err is non-nil it holds the
	// partial text accumulated before the failure, which may be empty if
	// the transport failed before the first fragment arrived.
	Text string

	// Err is the transport error that ended the stream, or nil when the
	// stream ended cleanly.
	Err error
}

// Complete reports whether the stream ended cleanly.
func (o Outcome) Complete() bool {
	return o.Err == nil
}

// Assemble reads SSE lines from r until end-of-stream or a transport
// error and returns exactly one Outcome.
//
// Each line starting with "data: " contributes the remainder of the line
// as a fragment. Fragments are appended strictly in delivery order, never
// reordered or deduplicated. Empty fragments ("data: " with nothing after
// the prefix) are no-ops. Lines without the prefix (blank event
// separators, ": keepalive" comments, anything malformed) are skipped
// silently.
//
// onUpdate, if non-nil, is invoked with the accumulated text after every
// non-empty fragment. Assemble never calls it for skipped lines or empty
// fragments, and never after returning.
//
// A read error at any point produces Outcome{Text: partial, Err: err};
// the text accumulated so far is always preserved. Assemble does not
// retry; stream restart policy belongs to the caller.
func Assemble(r io.Reader, onUpdate UpdateFunc) Outcome {
	var assembled strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		fragment, ok := strings.CutPrefix(line, dataPrefix)
		if !ok || fragment == "" {
			continue
		}

		assembled.WriteString(fragment)
		if onUpdate != nil {
			onUpdate(assembled.String())
		}
	}

	if err := scanner.Err(); err != nil {
		return Outcome{Text: assembled.String(), Err: err}
	}

	return Outcome{Text: assembled.String()}
}
