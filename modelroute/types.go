package modelroute

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt history sent to a provider. Content is
// plain text; adapters that need richer provider-native structure build it
// from these entries themselves.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request describes a single model invocation.
type Request struct {
	// Model is the model identifier (catalog aliases are accepted).
	Model string `json:"model"`

	// Messages is the prompt history, oldest first.
	Messages []Message `json:"messages"`

	// Provider pins the request to a named registered provider. When empty
	// the client routes by catalog lookup, then by its default provider.
	Provider string `json:"provider,omitempty"`

	// Temperature overrides the provider default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens caps the response length when non-nil.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Metadata is visible to middleware and ignored by providers.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StructuredCall is a tool invocation reported natively by a provider. When
// a stream carries structured calls, consumers treat them as authoritative
// and skip any recovery of calls from the message text.
type StructuredCall struct {
	Skill  string         `json:"skill"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Finish reason values reported on finished events and responses.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// Response is the complete result of a model invocation.
type Response struct {
	// ID is a unique identifier for this response.
	ID string `json:"id"`

	// Model and Provider name what actually served the request, which may
	// differ from the request when aliases or routing were involved.
	Model    string `json:"model"`
	Provider string `json:"provider"`

	// Content is the full response text.
	Content string `json:"content"`

	// FinishReason explains why generation stopped.
	FinishReason string `json:"finish_reason"`

	// Calls holds structured tool calls for providers that emit them.
	Calls []StructuredCall `json:"calls,omitempty"`

	// Usage reports token counts, estimated when the provider omits them.
	Usage Usage `json:"usage"`
}

// HasCalls reports whether the response carried structured tool calls.
func (r *Response) HasCalls() bool {
	return len(r.Calls) > 0
}

// StreamEventType identifies one of the four stream event kinds.
type StreamEventType string

const (
	// EventStarted opens a stream and names the model and provider serving it.
	EventStarted StreamEventType = "started"
	// EventChunk carries one content delta. The last content-bearing chunk
	// of a healthy stream has IsFinal set.
	EventChunk StreamEventType = "chunk"
	// EventFinished closes a healthy stream.
	EventFinished StreamEventType = "finished"
	// EventError closes a failed stream. No further events follow it.
	EventError StreamEventType = "error"
)

// StreamEvent is a single event on a model stream. Exactly one of the field
// groups below is meaningful, selected by Type.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Started fields.
	Model      string `json:"model,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`

	// Chunk fields.
	Content string `json:"content,omitempty"`
	IsFinal bool   `json:"is_final,omitempty"`

	// Finished fields.
	FinishReason string `json:"finish_reason,omitempty"`
	TotalChunks  int    `json:"total_chunks,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`

	// Calls carries structured tool calls when the provider supports the
	// native call protocol. Adapters attach them to the finished event.
	Calls []StructuredCall `json:"calls,omitempty"`

	// Error fields. Err is the underlying error and is not serialized.
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// StartedEvent creates the opening event of a stream.
func StartedEvent(model, providerID string) StreamEvent {
	return StreamEvent{Type: EventStarted, Model: model, ProviderID: providerID}
}

// ChunkEvent creates a content delta event.
func ChunkEvent(content string, isFinal bool) StreamEvent {
	return StreamEvent{Type: EventChunk, Content: content, IsFinal: isFinal}
}

// FinishedEvent creates the closing event of a healthy stream.
func FinishedEvent(finishReason string, totalChunks int) StreamEvent {
	return StreamEvent{Type: EventFinished, FinishReason: finishReason, TotalChunks: totalChunks}
}

// ErrorEvent creates the closing event of a failed stream.
func ErrorEvent(err error) StreamEvent {
	ev := StreamEvent{Type: EventError, Err: err}
	if err != nil {
		ev.Message = err.Error()
	}
	return ev
}
