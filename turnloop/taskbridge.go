package turnloop

import (
	"context"
	"fmt"
)

// TaskEventType identifies a task progress event.
type TaskEventType string

const (
	TaskStarted   TaskEventType = "started"
	TaskProgress  TaskEventType = "progress"
	TaskCompleted TaskEventType = "completed"
	TaskFailed    TaskEventType = "failed"
)

// TaskEvent is one progress update for a submitted task.
type TaskEvent struct {
	Type    TaskEventType `json:"type"`
	Percent int           `json:"percent,omitempty"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// TaskRequest describes work submitted to a task service.
type TaskRequest struct {
	Instruction   string `json:"instruction"`
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

// TaskService tracks longer-running work outside the chat streaming path.
type TaskService interface {
	// Submit starts a task and returns its id.
	Submit(ctx context.Context, req TaskRequest) (string, error)
	// Events returns the progress stream for a task. The channel closes
	// after a terminal event (completed or failed).
	Events(taskID string) (<-chan TaskEvent, error)
}

// TaskBridge tracks a task on a single placeholder message. Every progress
// event overwrites the placeholder's content in place; intermediate progress
// never appends new messages.
type TaskBridge struct {
	store *Store
	svc   TaskService
}

// NewTaskBridge creates a bridge writing into store.
func NewTaskBridge(store *Store, svc TaskService) *TaskBridge {
	return &TaskBridge{store: store, svc: svc}
}

// Run submits the task and blocks until it reaches a terminal state,
// returning the placeholder message id. Submission and subscription errors
// are returned; task-level failures are resolved into the placeholder's
// content.
func (b *TaskBridge) Run(ctx context.Context, req TaskRequest) (string, error) {
	placeholder, err := b.store.AppendLoadingAgent()
	if err != nil {
		return "", err
	}
	id := placeholder.ID
	b.store.SetContent(id, "Starting task...")
	b.store.SetActivity(id, ActivityExecuting)

	taskID, err := b.svc.Submit(ctx, req)
	if err != nil {
		b.finalize(id, fmt.Sprintf("[ERROR: %v]", err))
		return id, err
	}

	events, err := b.svc.Events(taskID)
	if err != nil {
		b.finalize(id, fmt.Sprintf("[ERROR: %v]", err))
		return id, err
	}

	for {
		select {
		case <-ctx.Done():
			b.finalize(id, fmt.Sprintf("[ERROR: task cancelled: %v]", ctx.Err()))
			return id, nil
		case ev, ok := <-events:
			if !ok {
				// Stream ended without a terminal event.
				b.finalize(id, "Task ended without a result.")
				return id, nil
			}
			switch ev.Type {
			case TaskStarted:
				b.store.SetContent(id, "Task started...")
			case TaskProgress:
				content := fmt.Sprintf("Processing: %d%%", ev.Percent)
				if ev.Message != "" {
					content += " - " + ev.Message
				}
				b.store.SetContent(id, content)
			case TaskCompleted:
				content := ev.Message
				if content == "" {
					content = "Task completed."
				}
				b.finalize(id, content)
				return id, nil
			case TaskFailed:
				b.finalize(id, fmt.Sprintf("[ERROR: task failed: %s]", ev.Error))
				return id, nil
			}
		}
	}
}

func (b *TaskBridge) finalize(id, content string) {
	b.store.SetContent(id, content)
	b.store.FinishStreaming(id)
}
