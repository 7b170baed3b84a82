package turnloop

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is a single entry in a conversation. Content is mutable while the
// message is streaming and frozen once IsLoading clears.
type Message struct {
	ID            string           `json:"id"`
	Role          Role             `json:"role"`
	Content       string           `json:"content"`
	Timestamp     time.Time        `json:"timestamp"`
	Model         string           `json:"model,omitempty"`
	Provider      string           `json:"provider,omitempty"`
	Thought       string           `json:"thought,omitempty"`
	ThinkingLevel string           `json:"thinking_level,omitempty"`
	ToolCalls     []ToolCall       `json:"tool_calls,omitempty"`
	Execution     *ExecutionResult `json:"execution,omitempty"`
	Activity      ActivityState    `json:"activity,omitempty"`
	ActiveTool    string           `json:"active_tool,omitempty"`
	IsLoading     bool             `json:"is_loading"`
	IsExecuted    bool             `json:"is_executed"`
}

// Store owns the ordered message list for one conversation. History is
// append-only; messages are removed only by Clear. At most one message may
// be loading at a time.
type Store struct {
	messages []Message
	byID     map[string]int
	mu       sync.Mutex
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{
		messages: make([]Message, 0),
		byID:     make(map[string]int),
	}
}

func (s *Store) append(msg Message) Message {
	msg.ID = uuid.New().String()
	msg.Timestamp = time.Now()
	s.byID[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	return msg
}

// AppendUser appends a user message.
func (s *Store) AppendUser(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(Message{Role: RoleUser, Content: content})
}

// AppendSystem appends a system message.
func (s *Store) AppendSystem(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(Message{Role: RoleSystem, Content: content})
}

// AppendAgent appends a completed (non-streaming) agent message.
func (s *Store) AppendAgent(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(Message{Role: RoleAgent, Content: content})
}

// AppendLoadingAgent appends the streaming placeholder for a new turn. It
// fails if another message is still loading.
func (s *Store) AppendLoadingAgent() (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.IsLoading {
			return Message{}, fmt.Errorf("message %s is still streaming", m.ID)
		}
	}
	return s.append(Message{Role: RoleAgent, IsLoading: true}), nil
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return Message{}, false
	}
	return s.messages[idx], true
}

// Messages returns a copy of the full history in order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Loading returns the currently streaming message, if any.
func (s *Store) Loading() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.IsLoading {
			return m, true
		}
	}
	return Message{}, false
}

// Clear resets the store to empty.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
	s.byID = make(map[string]int)
}

func (s *Store) locate(id string) (*Message, error) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return &s.messages[idx], nil
}

// SetContent replaces the content of a streaming message. Content is frozen
// once the message stops loading.
func (s *Store) SetContent(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	if !msg.IsLoading {
		return fmt.Errorf("message %s is frozen", id)
	}
	msg.Content = content
	return nil
}

// ReplaceToolCalls swaps the call list. After the message has been executed
// the list is immutable and the replacement is silently skipped.
func (s *Store) ReplaceToolCalls(id string, calls []ToolCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	if msg.IsExecuted {
		return nil
	}
	msg.ToolCalls = calls
	return nil
}

// SetExecution attaches the execution result. It may be written at most once.
func (s *Store) SetExecution(id string, result *ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	if msg.Execution != nil {
		return fmt.Errorf("message %s already has an execution result", id)
	}
	msg.Execution = result
	return nil
}

// MarkExecuted sets the idempotency marker preventing re-execution.
func (s *Store) MarkExecuted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	msg.IsExecuted = true
	return nil
}

// SetOrigin records which model and provider produced a message.
func (s *Store) SetOrigin(id, model, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	msg.Model = model
	msg.Provider = provider
	return nil
}

// SetActivity records a runtime-pushed activity state on a message.
func (s *Store) SetActivity(id string, state ActivityState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	msg.Activity = state
	return nil
}

// SetActiveTool records the label of the tool currently running for a message.
func (s *Store) SetActiveTool(id, tool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	msg.ActiveTool = tool
	return nil
}

// SetThought records intermediate reasoning text and its thinking level.
func (s *Store) SetThought(id, thought, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	msg.Thought = thought
	if level != "" {
		msg.ThinkingLevel = level
	}
	return nil
}

// FinishStreaming clears the loading flag, freezing content, and resets the
// live activity fields.
func (s *Store) FinishStreaming(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.locate(id)
	if err != nil {
		return err
	}
	msg.IsLoading = false
	msg.Activity = ""
	msg.ActiveTool = ""
	return nil
}
