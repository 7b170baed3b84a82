package modelroute

import "context"

// ProviderAdapter is the interface every model provider implements.
type ProviderAdapter interface {
	// Name returns the provider identifier, e.g. "openai" or "anthropic".
	Name() string

	// Complete executes a request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream executes a request and returns a channel of stream events.
	// A healthy stream is started, zero or more chunks, then finished.
	// A failed stream ends with a single error event. The adapter closes
	// the channel after the terminal event.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// Closer is implemented by adapters that hold releasable resources.
type Closer interface {
	Close() error
}
