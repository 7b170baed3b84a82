package turnloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/parleyagent/parley/capability"
	"github.com/parleyagent/parley/modelroute"
)

// ToolCall is one operation request detected in an agent response. Immutable
// once constructed.
type ToolCall struct {
	Skill  string         `json:"skill"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// NewWriteFileCall builds a filesystem write_file call.
func NewWriteFileCall(path, content string) ToolCall {
	return ToolCall{
		Skill:  capability.SkillFilesystem,
		Method: "write_file",
		Params: map[string]any{"path": path, "content": content},
	}
}

// NewReadFileCall builds a filesystem read_file call.
func NewReadFileCall(path string) ToolCall {
	return ToolCall{
		Skill:  capability.SkillFilesystem,
		Method: "read_file",
		Params: map[string]any{"path": path},
	}
}

// NewSearchFilesCall builds a filesystem search_files call. An empty path
// searches the whole workspace.
func NewSearchFilesCall(query, path string) ToolCall {
	params := map[string]any{"query": query}
	if path != "" {
		params["path"] = path
	}
	return ToolCall{Skill: capability.SkillFilesystem, Method: "search_files", Params: params}
}

// NewDeleteFileCall builds a filesystem delete_file call.
func NewDeleteFileCall(path string) ToolCall {
	return ToolCall{
		Skill:  capability.SkillFilesystem,
		Method: "delete_file",
		Params: map[string]any{"path": path},
	}
}

// NewListFilesCall builds a filesystem list_files call. An empty path lists
// the workspace root.
func NewListFilesCall(path string) ToolCall {
	params := map[string]any{}
	if path != "" {
		params["path"] = path
	}
	return ToolCall{Skill: capability.SkillFilesystem, Method: "list_files", Params: params}
}

// NewRunCommandCall builds a shell run_command call.
func NewRunCommandCall(command string) ToolCall {
	return ToolCall{
		Skill:  capability.SkillShell,
		Method: "run_command",
		Params: map[string]any{"command": command},
	}
}

// NewFetchURLCall builds a network fetch_url call.
func NewFetchURLCall(url string) ToolCall {
	return ToolCall{
		Skill:  capability.SkillNetwork,
		Method: "fetch_url",
		Params: map[string]any{"url": url},
	}
}

// Target returns the primary argument of the call (path, query, command, or
// URL) for display. Empty when the call has no primary argument.
func (c ToolCall) Target() string {
	if shape, ok := callShapes[c.Method]; ok && len(shape.params) > 0 {
		if v, ok := c.Params[shape.params[0]].(string); ok {
			return v
		}
		return ""
	}
	for _, key := range []string{"path", "query", "command", "url"} {
		if v, ok := c.Params[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Signature returns a stable fingerprint of the call (skill, method, and a
// hash of the params).
func (c ToolCall) Signature() string {
	data, _ := json.Marshal(c.Params)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s.%s:%x", c.Skill, c.Method, sum[:8])
}

// CallFromStructured converts a provider-emitted structured call, reporting
// whether it is usable. Calls naming a built-in method must carry that
// method's required params.
func CallFromStructured(sc modelroute.StructuredCall) (ToolCall, bool) {
	if sc.Skill == "" || sc.Method == "" {
		return ToolCall{}, false
	}
	params := make(map[string]any, len(sc.Params))
	for k, v := range sc.Params {
		params[k] = v
	}
	call := ToolCall{Skill: sc.Skill, Method: sc.Method, Params: params}

	if shape, ok := callShapes[sc.Method]; ok && shape.skill == sc.Skill {
		for _, name := range shape.params[:shape.minArgs] {
			if _, present := params[name]; !present {
				return ToolCall{}, false
			}
		}
	}
	return call, true
}

// CallsFromStructured converts a batch of structured calls, dropping any that
// are unusable.
func CallsFromStructured(scs []modelroute.StructuredCall) []ToolCall {
	var calls []ToolCall
	for _, sc := range scs {
		if call, ok := CallFromStructured(sc); ok {
			calls = append(calls, call)
		}
	}
	return calls
}
