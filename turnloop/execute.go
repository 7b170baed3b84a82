package turnloop

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/parleyagent/parley/capability"
)

const (
	defaultCallTimeout  = 30 * time.Second
	runCommandLineLimit = 256
)

// CallOutcome is the result of one executed call.
type CallOutcome struct {
	Call    ToolCall `json:"call"`
	Success bool     `json:"success"`
	Output  string   `json:"output,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ExecutionResult aggregates the outcomes of one pipeline run over a
// message's call list.
type ExecutionResult struct {
	Outcomes  []CallOutcome `json:"outcomes"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Error     string        `json:"error,omitempty"`
}

// Success reports whether every call in the list completed successfully.
func (r *ExecutionResult) Success() bool {
	return r.Failed == 0 && r.Skipped == 0
}

// Summary renders the aggregate outcome for display.
func (r *ExecutionResult) Summary() string {
	var sb strings.Builder
	if r.Success() {
		fmt.Fprintf(&sb, "Executed %d operations:\n", len(r.Outcomes))
	} else {
		fmt.Fprintf(&sb, "Execution stopped: %s\n", r.Error)
	}
	for _, oc := range r.Outcomes {
		status := "ok"
		if !oc.Success {
			status = "failed"
		}
		if target := oc.Call.Target(); target != "" {
			fmt.Fprintf(&sb, "- %s %s (%s)\n", oc.Call.Method, target, status)
		} else {
			fmt.Fprintf(&sb, "- %s (%s)\n", oc.Call.Method, status)
		}
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, "%d operations were not attempted.\n", r.Skipped)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// PipelineConfig holds execution pipeline settings.
type PipelineConfig struct {
	Scope       string        // workspace/session identifier passed on every call
	CallTimeout time.Duration // per-call bound; 0 = 30s
	OutputLimit int           // character cap per call output; 0 = default
}

// Pipeline executes a message's calls strictly one at a time, in list order,
// stopping at the first failure. A message is executed at most once.
type Pipeline struct {
	store   *Store
	invoker capability.Invoker
	topic   *Topic
	config  PipelineConfig
	running map[string]bool
	mu      sync.Mutex
}

// NewPipeline creates a pipeline invoking calls through invoker. topic may be
// nil; when set, tool_call and tool_result runtime events are published per
// call.
func NewPipeline(store *Store, invoker capability.Invoker, topic *Topic, cfg PipelineConfig) *Pipeline {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Pipeline{
		store:   store,
		invoker: invoker,
		topic:   topic,
		config:  cfg,
		running: make(map[string]bool),
	}
}

// Execute runs the call list attached to the message. If the message was
// already executed, already carries an execution result, or a pipeline run
// is in flight for it, Execute is a no-op returning the existing result.
func (p *Pipeline) Execute(ctx context.Context, messageID string) (*ExecutionResult, error) {
	msg, ok := p.store.Get(messageID)
	if !ok {
		return nil, fmt.Errorf("message %s not found", messageID)
	}
	if msg.IsExecuted || msg.Execution != nil {
		return msg.Execution, nil
	}
	if len(msg.ToolCalls) == 0 {
		return nil, fmt.Errorf("message %s has no calls to execute", messageID)
	}

	p.mu.Lock()
	if p.running[messageID] {
		p.mu.Unlock()
		return nil, nil
	}
	p.running[messageID] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.running, messageID)
		p.mu.Unlock()
	}()

	result := p.run(ctx, messageID, msg.ToolCalls)
	p.store.SetExecution(messageID, result)
	if result.Success() {
		p.store.MarkExecuted(messageID)
	}
	p.store.SetActiveTool(messageID, "")
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, messageID string, calls []ToolCall) *ExecutionResult {
	result := &ExecutionResult{}

	for i, call := range calls {
		// Cancellation prevents starting the next call, never the one in
		// flight.
		if err := ctx.Err(); err != nil {
			result.Skipped = len(calls) - i
			result.Error = fmt.Sprintf("cancelled before %s: %v", call.Method, err)
			break
		}

		p.store.SetActiveTool(messageID, call.Method)
		if p.topic != nil {
			p.topic.Publish(RuntimeEvent{
				Kind:      RuntimeToolCall,
				MessageID: messageID,
				Tool:      call.Method,
			})
		}

		outcome := p.invokeOne(ctx, call)
		result.Outcomes = append(result.Outcomes, outcome)

		if p.topic != nil {
			ev := RuntimeEvent{
				Kind:      RuntimeToolResult,
				MessageID: messageID,
				Tool:      call.Method,
				Content:   outcome.Output,
			}
			if !outcome.Success {
				ev.Content = outcome.Error
			}
			p.topic.Publish(ev)
		}

		if !outcome.Success {
			result.Failed++
			result.Skipped = len(calls) - i - 1
			result.Error = fmt.Sprintf("%s failed: %s", call.Method, outcome.Error)
			break
		}
		result.Succeeded++
	}

	return result
}

// invokeOne awaits a single call to completion, bounding it with the
// per-call timeout. Timeouts and transport errors are execution failures.
func (p *Pipeline) invokeOne(ctx context.Context, call ToolCall) CallOutcome {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()

	res, err := p.invoker.Invoke(callCtx, capability.Request{
		Scope:  p.config.Scope,
		Skill:  call.Skill,
		Method: call.Method,
		Params: call.Params,
	})
	if err != nil {
		return CallOutcome{Call: call, Success: false, Error: err.Error()}
	}
	if !res.Success {
		return CallOutcome{Call: call, Success: false, Error: res.Error}
	}

	output := TruncateOutput(res.Output, p.config.OutputLimit)
	if call.Method == "run_command" {
		output = TruncateLines(output, runCommandLineLimit)
	}
	return CallOutcome{Call: call, Success: true, Output: output}
}
