package gateway

import (
	"sort"
	"testing"

	"github.com/parleyagent/parley/capability"
	"github.com/parleyagent/parley/modelroute"
	"github.com/parleyagent/parley/turnloop"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	client := modelroute.NewClient(modelroute.WithProvider("fake", &fakeAdapter{name: "fake"}))
	reg := capability.NewRegistry()
	mgr := NewManager(client, reg, nil, turnloop.Config{Provider: "fake", Model: "default-model"})
	t.Cleanup(mgr.Close)
	return mgr
}

func TestManagerCreateAndGet(t *testing.T) {
	mgr := newTestManager(t)

	o := mgr.Create(ConversationOverrides{})
	if o.ID() == "" {
		t.Fatal("empty conversation id")
	}
	if got, ok := mgr.Get(o.ID()); !ok || got != o {
		t.Errorf("Get(%s) = %v, %v", o.ID(), got, ok)
	}
	if _, ok := mgr.Get("missing"); ok {
		t.Error("Get(missing) succeeded")
	}
	if mgr.Count() != 1 {
		t.Errorf("Count = %d", mgr.Count())
	}
}

func TestManagerOverrides(t *testing.T) {
	mgr := newTestManager(t)

	yes := true
	o := mgr.Create(ConversationOverrides{
		Model:       "custom-model",
		Provider:    "fake",
		AutoExecute: &yes,
	})
	cfg := o.Config()
	if cfg.Model != "custom-model" || cfg.Provider != "fake" || !cfg.AutoExecute {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	// Absent overrides keep the manager defaults.
	o2 := mgr.Create(ConversationOverrides{})
	if cfg := o2.Config(); cfg.Model != "default-model" || cfg.AutoExecute {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestManagerListSorted(t *testing.T) {
	mgr := newTestManager(t)

	var ids []string
	for range 5 {
		ids = append(ids, mgr.Create(ConversationOverrides{}).ID())
	}
	sort.Strings(ids)

	list := mgr.List()
	if len(list) != 5 {
		t.Fatalf("len(List) = %d", len(list))
	}
	for i, o := range list {
		if o.ID() != ids[i] {
			t.Errorf("List[%d] = %s, want %s", i, o.ID(), ids[i])
		}
	}
}

func TestManagerRemove(t *testing.T) {
	mgr := newTestManager(t)

	o := mgr.Create(ConversationOverrides{})
	if err := mgr.Remove(o.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := mgr.Get(o.ID()); ok {
		t.Error("conversation still registered after Remove")
	}
	if err := mgr.Remove(o.ID()); err == nil {
		t.Error("second Remove succeeded")
	}
}

func TestManagerClose(t *testing.T) {
	client := modelroute.NewClient(modelroute.WithProvider("fake", &fakeAdapter{name: "fake"}))
	mgr := NewManager(client, capability.NewRegistry(), nil, turnloop.Config{Provider: "fake"})

	o := mgr.Create(ConversationOverrides{})
	_, events := o.Topic().Subscribe(1)
	mgr.Close()

	if _, open := <-events; open {
		t.Error("topic not closed by manager Close")
	}
	if mgr.Count() != 0 {
		t.Errorf("Count after Close = %d", mgr.Count())
	}
}
