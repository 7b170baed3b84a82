package turnloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/parleyagent/parley/capability"
)

// LocalTaskRunner is an in-process TaskService. The task instruction is
// machine-generated plan text; each step runs in order, and steps whose
// descriptions embed call syntax are executed through the capability layer.
type LocalTaskRunner struct {
	invoker capability.Invoker
	scope   string
	tasks   map[string]chan TaskEvent
	mu      sync.Mutex
}

// NewLocalTaskRunner creates a runner invoking calls through invoker with
// the given capability scope.
func NewLocalTaskRunner(invoker capability.Invoker, scope string) *LocalTaskRunner {
	return &LocalTaskRunner{
		invoker: invoker,
		scope:   scope,
		tasks:   make(map[string]chan TaskEvent),
	}
}

// Submit parses the instruction as a plan and starts executing it. A
// malformed plan fails submission; no calls are attempted.
func (r *LocalTaskRunner) Submit(ctx context.Context, req TaskRequest) (string, error) {
	plan, err := ParsePlan(req.Instruction)
	if err != nil {
		return "", fmt.Errorf("plan parse failed: %w", err)
	}

	taskID := uuid.New().String()
	ch := make(chan TaskEvent, 64)
	r.mu.Lock()
	r.tasks[taskID] = ch
	r.mu.Unlock()

	go r.execute(ctx, plan, ch)
	return taskID, nil
}

// Events returns the progress stream for a task.
func (r *LocalTaskRunner) Events(taskID string) (<-chan TaskEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	return ch, nil
}

func (r *LocalTaskRunner) execute(ctx context.Context, plan *Plan, ch chan TaskEvent) {
	defer close(ch)

	emit := func(ev TaskEvent) {
		select {
		case ch <- ev:
		default:
			// Drop rather than block when the consumer lags.
		}
	}

	emit(TaskEvent{Type: TaskStarted})

	total := len(plan.Steps)
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			emit(TaskEvent{Type: TaskFailed, Error: fmt.Sprintf("cancelled at step %d: %v", i+1, err)})
			return
		}

		percent := (i * 100) / total
		emit(TaskEvent{
			Type:    TaskProgress,
			Percent: percent,
			Message: fmt.Sprintf("Step %d/%d: %s", i+1, total, step.Description),
		})

		for _, call := range ExtractCalls(step.Description) {
			res, err := r.invoker.Invoke(ctx, capability.Request{
				Scope:  r.scope,
				Skill:  call.Skill,
				Method: call.Method,
				Params: call.Params,
			})
			if err != nil {
				emit(TaskEvent{Type: TaskFailed, Error: fmt.Sprintf("step %d (%s): %v", i+1, call.Method, err)})
				return
			}
			if !res.Success {
				emit(TaskEvent{Type: TaskFailed, Error: fmt.Sprintf("step %d (%s): %s", i+1, call.Method, res.Error)})
				return
			}
		}
	}

	emit(TaskEvent{Type: TaskProgress, Percent: 100})
	emit(TaskEvent{Type: TaskCompleted, Message: fmt.Sprintf("Completed %d steps.", total)})
}
