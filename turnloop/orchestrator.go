package turnloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parleyagent/parley/capability"
	"github.com/parleyagent/parley/modelroute"
)

// Config holds orchestrator settings for one conversation.
type Config struct {
	Model         string        `json:"model,omitempty"`
	Provider      string        `json:"provider,omitempty"`
	Scope         string        `json:"scope,omitempty"`          // capability scope; defaults to the conversation id
	WorkspacePath string        `json:"workspace_path,omitempty"` // shown in the hidden context block
	ContextPrefix string        `json:"context_prefix,omitempty"` // extra hidden context
	AutoExecute   bool          `json:"auto_execute"`             // execute detected calls without confirmation
	CallTimeout   time.Duration `json:"call_timeout,omitempty"`
	OutputLimit   int           `json:"output_limit,omitempty"`

	EnableRepetitionWarning bool `json:"enable_repetition_warning"`
	RepetitionWindow        int  `json:"repetition_window,omitempty"`
}

// DefaultConfig returns the default orchestrator configuration. Detected
// calls wait for explicit confirmation.
func DefaultConfig() Config {
	return Config{
		AutoExecute:             false,
		CallTimeout:             defaultCallTimeout,
		EnableRepetitionWarning: true,
		RepetitionWindow:        10,
	}
}

// Orchestrator drives one conversation: it submits instructions, ingests the
// streamed response, executes detected calls, and classifies live activity.
// One turn runs at a time.
type Orchestrator struct {
	id       string
	store    *Store
	topic    *Topic
	client   *modelroute.Client
	invoker  capability.Invoker
	ingestor *Ingestor
	pipeline *Pipeline
	detector *RepetitionDetector
	tasks    TaskService
	config   Config

	busy      bool
	executing int
	cancel    *CancelFlag
	mu        sync.Mutex
}

// New creates an orchestrator for a fresh conversation.
func New(client *modelroute.Client, invoker capability.Invoker, cfg Config) *Orchestrator {
	id := uuid.New().String()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.RepetitionWindow <= 0 {
		cfg.RepetitionWindow = 10
	}
	if cfg.Scope == "" {
		cfg.Scope = id
	}

	store := NewStore()
	topic := NewTopic()
	return &Orchestrator{
		id:       id,
		store:    store,
		topic:    topic,
		client:   client,
		invoker:  invoker,
		ingestor: NewIngestor(store, topic),
		pipeline: NewPipeline(store, invoker, topic, PipelineConfig{
			Scope:       cfg.Scope,
			CallTimeout: cfg.CallTimeout,
			OutputLimit: cfg.OutputLimit,
		}),
		detector: NewRepetitionDetector(cfg.RepetitionWindow),
		config:   cfg,
	}
}

// ID returns the conversation identifier.
func (o *Orchestrator) ID() string { return o.id }

// Store returns the conversation state store.
func (o *Orchestrator) Store() *Store { return o.store }

// Topic returns the runtime event topic for this conversation.
func (o *Orchestrator) Topic() *Topic { return o.topic }

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config { return o.config }

// Messages returns a copy of the conversation history.
func (o *Orchestrator) Messages() []Message { return o.store.Messages() }

// SetTaskService wires the task service used by SubmitTask.
func (o *Orchestrator) SetTaskService(svc TaskService) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tasks = svc
}

// Executing reports whether an execution pipeline is running for this
// conversation.
func (o *Orchestrator) Executing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.executing > 0
}

func (o *Orchestrator) addExecuting(delta int) {
	o.mu.Lock()
	o.executing += delta
	o.mu.Unlock()
}

// Activity resolves the live activity state for a message.
func (o *Orchestrator) Activity(messageID string) ActivityState {
	msg, ok := o.store.Get(messageID)
	if !ok {
		return ActivityIdle
	}
	return ClassifyActivity(msg, o.Executing())
}

// Cancel requests cooperative cancellation of the turn in flight. Events
// still arriving for that turn are discarded.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel.Cancel()
	}
}

// Clear cancels any turn in flight and resets the conversation to empty.
func (o *Orchestrator) Clear() {
	o.Cancel()
	o.store.Clear()
	o.mu.Lock()
	o.detector.Reset()
	o.mu.Unlock()
}

// Close releases the conversation's resources.
func (o *Orchestrator) Close() {
	o.Cancel()
	o.topic.Close()
}

func (o *Orchestrator) beginTurn() (*CancelFlag, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return nil, fmt.Errorf("a turn is already in progress")
	}
	o.busy = true
	o.cancel = &CancelFlag{}
	return o.cancel, nil
}

func (o *Orchestrator) endTurn() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

// Submit processes one instruction: it appends the user message, streams the
// model response into a placeholder, and detects calls as text arrives. All
// failures resolve into conversation content; the returned error covers only
// misuse, like submitting while a turn is in flight.
func (o *Orchestrator) Submit(ctx context.Context, instruction string) (msg Message, err error) {
	flag, err := o.beginTurn()
	if err != nil {
		return Message{}, err
	}
	defer o.endTurn()

	placeholderID := ""
	defer func() {
		if r := recover(); r != nil {
			o.resolvePanic(placeholderID, r)
			if placeholderID != "" {
				msg, _ = o.store.Get(placeholderID)
			}
			err = nil
		}
	}()

	o.store.AppendUser(instruction)
	request := o.buildRequest()

	placeholder, err := o.store.AppendLoadingAgent()
	if err != nil {
		return Message{}, err
	}
	placeholderID = placeholder.ID

	// Per-turn runtime subscription; torn down when the turn ends.
	subID, runtimeCh := o.topic.Subscribe(64)
	done := make(chan struct{})
	go o.applyRuntime(placeholderID, runtimeCh, done)
	defer func() {
		o.topic.Unsubscribe(subID)
		<-done
	}()

	events, streamErr := o.client.Stream(ctx, request)
	if streamErr != nil {
		o.store.SetContent(placeholderID, fmt.Sprintf("[ERROR: %v]", streamErr))
		o.store.FinishStreaming(placeholderID)
		msg, _ = o.store.Get(placeholderID)
		return msg, nil
	}

	outcome := o.ingestor.Run(placeholderID, events, flag)

	if o.config.AutoExecute && !flag.Cancelled() && outcome.Err == nil && len(outcome.Calls) > 0 {
		o.doExecute(ctx, placeholderID)
	}

	msg, _ = o.store.Get(placeholderID)
	return msg, nil
}

// ExecuteCalls runs the calls attached to a message, typically after the
// user confirms them. Re-invoking for an executed message has no effect.
func (o *Orchestrator) ExecuteCalls(ctx context.Context, messageID string) (result *ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.resolvePanic("", r)
			result, err = nil, nil
		}
	}()
	return o.doExecute(ctx, messageID)
}

func (o *Orchestrator) doExecute(ctx context.Context, messageID string) (*ExecutionResult, error) {
	o.addExecuting(1)
	defer o.addExecuting(-1)

	result, err := o.pipeline.Execute(ctx, messageID)
	if err != nil || result == nil {
		return result, err
	}

	if o.config.EnableRepetitionWarning {
		o.mu.Lock()
		o.detector.Observe(callsOf(result))
		repeating := o.detector.Detect()
		window := o.detector.Window()
		o.mu.Unlock()
		if repeating {
			o.store.AppendSystem(fmt.Sprintf(
				"The last %d operations follow a repeating pattern. Try a different approach.", window))
		}
	}
	return result, nil
}

func callsOf(result *ExecutionResult) []ToolCall {
	calls := make([]ToolCall, len(result.Outcomes))
	for i, oc := range result.Outcomes {
		calls[i] = oc.Call
	}
	return calls
}

// SubmitTask routes an instruction through the task service instead of the
// chat streaming path. Progress is tracked on a single placeholder message.
func (o *Orchestrator) SubmitTask(ctx context.Context, instruction string) (msg Message, err error) {
	o.mu.Lock()
	svc := o.tasks
	o.mu.Unlock()
	if svc == nil {
		return Message{}, fmt.Errorf("no task service configured")
	}

	if _, err := o.beginTurn(); err != nil {
		return Message{}, err
	}
	defer o.endTurn()

	placeholderID := ""
	defer func() {
		if r := recover(); r != nil {
			o.resolvePanic(placeholderID, r)
			if placeholderID != "" {
				msg, _ = o.store.Get(placeholderID)
			}
			err = nil
		}
	}()

	o.store.AppendUser(instruction)

	o.addExecuting(1)
	defer o.addExecuting(-1)

	bridge := NewTaskBridge(o.store, svc)
	id, runErr := bridge.Run(ctx, TaskRequest{
		Instruction:   instruction,
		Provider:      o.config.Provider,
		Model:         o.config.Model,
		WorkspacePath: o.config.WorkspacePath,
	})
	if id == "" {
		return Message{}, runErr
	}
	placeholderID = id

	// Task failures are already resolved into the placeholder's content.
	msg, _ = o.store.Get(id)
	return msg, nil
}

// buildRequest assembles the model request from the non-streaming history,
// prefixed by the hidden context block.
func (o *Orchestrator) buildRequest() modelroute.Request {
	history := o.store.Messages()
	msgs := make([]modelroute.Message, 0, len(history)+1)
	msgs = append(msgs, modelroute.SystemMessage(BuildContextPrefix(o.config.WorkspacePath, o.config.ContextPrefix)))
	for _, m := range history {
		if m.IsLoading || m.Content == "" {
			continue
		}
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, modelroute.UserMessage(m.Content))
		case RoleAgent:
			msgs = append(msgs, modelroute.AssistantMessage(m.Content))
		case RoleSystem:
			msgs = append(msgs, modelroute.SystemMessage(m.Content))
		}
	}
	return modelroute.Request{
		Model:    o.config.Model,
		Provider: o.config.Provider,
		Messages: msgs,
	}
}

// applyRuntime folds runtime events for one turn into the placeholder
// message. Events correlated to other messages are ignored.
func (o *Orchestrator) applyRuntime(messageID string, events <-chan RuntimeEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		if ev.MessageID != "" && ev.MessageID != messageID {
			continue
		}
		switch ev.Kind {
		case RuntimeStatus:
			o.store.SetActivity(messageID, ev.State)
		case RuntimeThought:
			o.store.SetThought(messageID, ev.Content, ev.Level)
		case RuntimeToolCall:
			o.store.SetActiveTool(messageID, ev.Tool)
		}
	}
}

// resolvePanic converts an orchestration panic into conversation content.
// Nothing propagates past the turn boundary.
func (o *Orchestrator) resolvePanic(placeholderID string, r any) {
	marker := fmt.Sprintf("[ERROR: internal: %v]", r)
	if placeholderID != "" {
		if msg, ok := o.store.Get(placeholderID); ok && msg.IsLoading {
			o.store.SetContent(placeholderID, marker)
			o.store.FinishStreaming(placeholderID)
			return
		}
	}
	o.store.AppendSystem(marker)
}
