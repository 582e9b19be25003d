package llm

// StreamHandler receives each content delta of a streaming completion as
// it arrives. Returning an error aborts the stream and surfaces the error
// to the ChatStream caller.
type StreamHandler func(delta string) error
