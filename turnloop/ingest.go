package turnloop

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/parleyagent/parley/modelroute"
)

// CancelFlag is the cooperative per-turn cancellation flag. Once set, stream
// events are still received but their effects are discarded.
type CancelFlag struct {
	flag atomic.Bool
}

// Cancel sets the flag. Idempotent.
func (c *CancelFlag) Cancel() {
	c.flag.Store(true)
}

// Cancelled reports whether the flag is set.
func (c *CancelFlag) Cancelled() bool {
	return c.flag.Load()
}

// IngestOutcome summarizes one consumed response stream.
type IngestOutcome struct {
	Content      string
	FinishReason string
	TotalChunks  int
	Calls        []ToolCall
	Cancelled    bool
	Err          error
}

// Ingestor consumes response streams, accumulating text into a message and
// re-running call extraction on every increment.
type Ingestor struct {
	store *Store
	topic *Topic
}

// NewIngestor creates an ingestor writing into store. topic may be nil; when
// set, a stream_chunk runtime event is published per chunk.
func NewIngestor(store *Store, topic *Topic) *Ingestor {
	return &Ingestor{store: store, topic: topic}
}

// Run consumes events until the stream ends, mutating the message as chunks
// arrive. Events are processed strictly in arrival order. After cancel is
// set, remaining events are drained without touching the message.
//
// Structured calls delivered by the stream take precedence over textual
// extraction: once present, the extractor's results are discarded for this
// turn.
func (in *Ingestor) Run(messageID string, events <-chan modelroute.StreamEvent, cancel *CancelFlag) IngestOutcome {
	var (
		acc      strings.Builder
		outcome  IngestOutcome
		finished bool
	)

	for ev := range events {
		if cancel != nil && cancel.Cancelled() {
			outcome.Cancelled = true
			continue
		}
		if finished {
			continue
		}

		switch ev.Type {
		case modelroute.EventStarted:
			in.store.SetOrigin(messageID, ev.Model, ev.ProviderID)

		case modelroute.EventChunk:
			acc.WriteString(ev.Content)
			outcome.TotalChunks++
			in.store.SetContent(messageID, acc.String())
			in.refreshCalls(messageID, &outcome, acc.String(), nil)
			if in.topic != nil {
				in.topic.Publish(RuntimeEvent{
					Kind:      RuntimeStreamChunk,
					MessageID: messageID,
					Content:   ev.Content,
				})
			}

		case modelroute.EventFinished:
			outcome.FinishReason = ev.FinishReason
			in.refreshCalls(messageID, &outcome, acc.String(), ev.Calls)
			in.store.FinishStreaming(messageID)
			finished = true

		case modelroute.EventError:
			err := ev.Err
			if err == nil {
				err = fmt.Errorf("%s", ev.Message)
			}
			outcome.Err = err
			acc.WriteString(fmt.Sprintf("\n\n[ERROR: %v]", err))
			in.store.SetContent(messageID, acc.String())
			in.store.FinishStreaming(messageID)
			finished = true
		}
	}

	if cancel != nil && cancel.Cancelled() {
		outcome.Cancelled = true
	}
	outcome.Content = acc.String()
	if !finished {
		// Cancelled, or the stream ended without a terminal event. Freeze
		// whatever accumulated.
		in.store.FinishStreaming(messageID)
	}
	return outcome
}

// refreshCalls replaces the message's call list from the accumulated text,
// or from structured calls when the stream delivered them.
func (in *Ingestor) refreshCalls(messageID string, outcome *IngestOutcome, text string, structured []modelroute.StructuredCall) {
	if len(structured) > 0 {
		calls := CallsFromStructured(structured)
		if len(calls) > 0 {
			outcome.Calls = calls
			in.store.ReplaceToolCalls(messageID, calls)
			return
		}
	}
	calls := ExtractCalls(text)
	outcome.Calls = calls
	if len(calls) > 0 {
		in.store.ReplaceToolCalls(messageID, calls)
	}
}
