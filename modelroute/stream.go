package modelroute

import (
	"context"
	"strings"
)

// StreamAccumulator collects stream events into a complete Response.
type StreamAccumulator struct {
	content      strings.Builder
	model        string
	provider     string
	chunks       int
	finishReason string
	totalChunks  int
	calls        []StructuredCall
	usage        *Usage
	err          error
	done         bool
}

// NewStreamAccumulator creates a new StreamAccumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Process ingests a single stream event.
func (sa *StreamAccumulator) Process(event StreamEvent) {
	switch event.Type {
	case EventStarted:
		sa.model = event.Model
		sa.provider = event.ProviderID
	case EventChunk:
		sa.content.WriteString(event.Content)
		sa.chunks++
		if len(event.Calls) > 0 {
			sa.calls = append(sa.calls, event.Calls...)
		}
	case EventFinished:
		sa.finishReason = event.FinishReason
		sa.totalChunks = event.TotalChunks
		sa.usage = event.Usage
		if len(event.Calls) > 0 {
			sa.calls = append(sa.calls, event.Calls...)
		}
		sa.done = true
	case EventError:
		sa.err = event.Err
		if sa.err == nil && event.Message != "" {
			sa.err = &StreamError{RouteError: RouteError{Message: event.Message}}
		}
		sa.done = true
	}
}

// Done reports whether a terminal event has been processed.
func (sa *StreamAccumulator) Done() bool {
	return sa.done
}

// Err returns the stream error, if the stream failed.
func (sa *StreamAccumulator) Err() error {
	return sa.err
}

// Chunks returns the number of chunk events processed so far.
func (sa *StreamAccumulator) Chunks() int {
	return sa.chunks
}

// Text returns the content accumulated so far.
func (sa *StreamAccumulator) Text() string {
	return sa.content.String()
}

// Response returns the accumulated response.
func (sa *StreamAccumulator) Response() *Response {
	finishReason := sa.finishReason
	if finishReason == "" {
		finishReason = FinishReasonStop
	}

	usage := Usage{}
	if sa.usage != nil {
		usage = *sa.usage
	}

	return &Response{
		Model:        sa.model,
		Provider:     sa.provider,
		Content:      sa.content.String(),
		FinishReason: finishReason,
		Calls:        sa.calls,
		Usage:        usage,
	}
}

// Collect drains a stream channel into a single Response. It returns the
// stream error if the stream failed, and the context error if the context
// is cancelled while waiting.
func Collect(ctx context.Context, events <-chan StreamEvent) (*Response, error) {
	acc := NewStreamAccumulator()
	for {
		select {
		case <-ctx.Done():
			return nil, &AbortError{RouteError: RouteError{Message: "stream cancelled", Cause: ctx.Err()}}
		case ev, ok := <-events:
			if !ok {
				if err := acc.Err(); err != nil {
					return nil, err
				}
				return acc.Response(), nil
			}
			acc.Process(ev)
			if acc.Done() {
				if err := acc.Err(); err != nil {
					return nil, err
				}
				// Drain any remaining events so the producer can exit.
				go func() {
					for range events {
					}
				}()
				return acc.Response(), nil
			}
		}
	}
}
