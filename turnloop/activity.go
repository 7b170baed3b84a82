package turnloop

// ActivityState is a symbolic classification of what the agent is doing,
// used only for progress display, never for control flow.
type ActivityState string

const (
	ActivityIdle          ActivityState = "idle"
	ActivityThinking      ActivityState = "thinking"
	ActivityPlanning      ActivityState = "planning"
	ActivityExecuting     ActivityState = "executing"
	ActivityCreating      ActivityState = "creating"
	ActivityReading       ActivityState = "reading"
	ActivityObserving     ActivityState = "observing"
	ActivityBrowsing      ActivityState = "browsing"
	ActivityCommunicating ActivityState = "communicating"
	ActivityPruning       ActivityState = "pruning"
)

// methodActivity maps built-in method names to the state shown while their
// calls are pending.
var methodActivity = map[string]ActivityState{
	"write_file":   ActivityCreating,
	"read_file":    ActivityObserving,
	"search_files": ActivityBrowsing,
	"list_files":   ActivityBrowsing,
	"delete_file":  ActivityPruning,
	"run_command":  ActivityExecuting,
	"fetch_url":    ActivityCommunicating,
}

// ClassifyActivity resolves the live activity state for a message. Rules are
// evaluated in order; the first match wins:
//
//  1. a runtime-pushed state on a still-loading message is used verbatim
//  2. pending (unexecuted) tool calls classify by the first call's method
//  3. the turn-level executing flag
//  4. a loading message with nothing else known is thinking
//  5. idle
func ClassifyActivity(msg Message, executing bool) ActivityState {
	if msg.Activity != "" && msg.IsLoading {
		return msg.Activity
	}
	if len(msg.ToolCalls) > 0 && !msg.IsExecuted {
		method := msg.ToolCalls[0].Method
		if method == "" {
			return ActivityPlanning
		}
		if state, ok := methodActivity[method]; ok {
			return state
		}
		return ActivityExecuting
	}
	if executing {
		return ActivityExecuting
	}
	if msg.IsLoading {
		return ActivityThinking
	}
	return ActivityIdle
}

// ActivityDescriptor is the presentation lookup for one activity state.
type ActivityDescriptor struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var activityDescriptors = map[ActivityState]ActivityDescriptor{
	ActivityIdle:          {Label: "Idle", Icon: "dot", Color: "#9CA3AF"},
	ActivityThinking:      {Label: "Thinking", Icon: "brain", Color: "#A78BFA"},
	ActivityPlanning:      {Label: "Planning", Icon: "list", Color: "#60A5FA"},
	ActivityExecuting:     {Label: "Executing", Icon: "gear", Color: "#FBBF24"},
	ActivityCreating:      {Label: "Creating files", Icon: "pencil", Color: "#34D399"},
	ActivityReading:       {Label: "Reading", Icon: "book", Color: "#38BDF8"},
	ActivityObserving:     {Label: "Inspecting files", Icon: "eye", Color: "#38BDF8"},
	ActivityBrowsing:      {Label: "Searching", Icon: "magnifier", Color: "#818CF8"},
	ActivityCommunicating: {Label: "Fetching", Icon: "globe", Color: "#F472B6"},
	ActivityPruning:       {Label: "Cleaning up", Icon: "scissors", Color: "#F87171"},
}

// DescribeActivity returns the presentation descriptor for a state. Unknown
// states describe as idle.
func DescribeActivity(state ActivityState) ActivityDescriptor {
	if d, ok := activityDescriptors[state]; ok {
		return d
	}
	return activityDescriptors[ActivityIdle]
}
