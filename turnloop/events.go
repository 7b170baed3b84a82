package turnloop

import (
	"fmt"
	"sync"
	"time"
)

// RuntimeKind identifies the type of a runtime event.
type RuntimeKind string

const (
	RuntimeStatus      RuntimeKind = "status"
	RuntimeThought     RuntimeKind = "thought"
	RuntimeToolCall    RuntimeKind = "tool_call"
	RuntimeToolResult  RuntimeKind = "tool_result"
	RuntimeStreamChunk RuntimeKind = "stream_chunk"
)

// RuntimeEvent is a discriminated event pushed by the backend while a turn is
// being processed.
type RuntimeEvent struct {
	Kind      RuntimeKind   `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	MessageID string        `json:"message_id,omitempty"`
	State     ActivityState `json:"state,omitempty"`   // status
	Content   string        `json:"content,omitempty"` // thought, stream_chunk, tool_result
	Level     string        `json:"level,omitempty"`   // thought
	Tool      string        `json:"tool,omitempty"`    // tool_call, tool_result
}

// Topic fans runtime events out to per-turn subscribers. Subscriptions are
// scoped explicitly: subscribe when a turn starts, unsubscribe when it ends.
type Topic struct {
	subs   map[string]chan RuntimeEvent
	nextID int
	closed bool
	mu     sync.Mutex
}

// NewTopic creates an empty topic.
func NewTopic() *Topic {
	return &Topic{subs: make(map[string]chan RuntimeEvent)}
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is closed on Unsubscribe or Close.
func (t *Topic) Subscribe(buffer int) (string, <-chan RuntimeEvent) {
	if buffer <= 0 {
		buffer = 64
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := fmt.Sprintf("sub-%d", t.nextID)
	ch := make(chan RuntimeEvent, buffer)
	if t.closed {
		close(ch)
		return id, ch
	}
	t.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// ignored.
func (t *Topic) Unsubscribe(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.subs[id]; ok {
		delete(t.subs, id)
		close(ch)
	}
}

// Publish delivers an event to every subscriber. Subscribers with full
// buffers miss the event; delivery never blocks the publisher.
func (t *Topic) Publish(ev RuntimeEvent) {
	ev.Timestamp = time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Buffer full; drop rather than block the turn.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (t *Topic) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close closes all subscriber channels. Safe to call multiple times.
func (t *Topic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}
