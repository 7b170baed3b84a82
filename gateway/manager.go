package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/parleyagent/parley/capability"
	"github.com/parleyagent/parley/modelroute"
	"github.com/parleyagent/parley/turnloop"
)

// Manager owns the live conversations, one orchestrator each.
type Manager struct {
	client   *modelroute.Client
	invoker  capability.Invoker
	tasks    turnloop.TaskService
	defaults turnloop.Config

	convs map[string]*turnloop.Orchestrator
	mu    sync.Mutex
}

// NewManager creates a manager building orchestrators from client and
// invoker with defaults as the base configuration. tasks may be nil when the
// plan/task mode is not offered.
func NewManager(client *modelroute.Client, invoker capability.Invoker, tasks turnloop.TaskService, defaults turnloop.Config) *Manager {
	return &Manager{
		client:   client,
		invoker:  invoker,
		tasks:    tasks,
		defaults: defaults,
		convs:    make(map[string]*turnloop.Orchestrator),
	}
}

// ConversationOverrides are the per-conversation settings a client may set
// at creation time. Nil pointers keep the manager defaults.
type ConversationOverrides struct {
	Model       string `json:"model,omitempty"`
	Provider    string `json:"provider,omitempty"`
	AutoExecute *bool  `json:"auto_execute,omitempty"`
}

// Create starts a new conversation and returns its orchestrator.
func (m *Manager) Create(ov ConversationOverrides) *turnloop.Orchestrator {
	cfg := m.defaults
	if ov.Model != "" {
		cfg.Model = ov.Model
	}
	if ov.Provider != "" {
		cfg.Provider = ov.Provider
	}
	if ov.AutoExecute != nil {
		cfg.AutoExecute = *ov.AutoExecute
	}

	o := turnloop.New(m.client, m.invoker, cfg)
	if m.tasks != nil {
		o.SetTaskService(m.tasks)
	}

	m.mu.Lock()
	m.convs[o.ID()] = o
	m.mu.Unlock()
	return o
}

// Get returns the orchestrator for a conversation id.
func (m *Manager) Get(id string) (*turnloop.Orchestrator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.convs[id]
	return o, ok
}

// List returns all live conversations ordered by id.
func (m *Manager) List() []*turnloop.Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*turnloop.Orchestrator, 0, len(m.convs))
	for _, o := range m.convs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Remove closes a conversation and drops it from the manager.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	o, ok := m.convs[id]
	if ok {
		delete(m.convs, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	o.Close()
	return nil
}

// Count returns the number of live conversations.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}

// Close shuts down every conversation.
func (m *Manager) Close() {
	m.mu.Lock()
	convs := make([]*turnloop.Orchestrator, 0, len(m.convs))
	for _, o := range m.convs {
		convs = append(convs, o)
	}
	m.convs = make(map[string]*turnloop.Orchestrator)
	m.mu.Unlock()
	for _, o := range convs {
		o.Close()
	}
}
