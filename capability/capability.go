// Package capability is the boundary between conversations and the outside
// world. A capability request names a scope, a skill, and a method with free
// form parameters; an Invoker resolves it synchronously into a Result that
// either succeeded with output or failed with an error string. Failures are
// data, not Go errors: an error return is reserved for faults in the invoker
// itself.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is a single capability invocation.
type Request struct {
	// Scope identifies the workspace or session the call runs against.
	Scope string `json:"scope"`

	// Skill is the capability group, e.g. "filesystem" or "shell".
	Skill string `json:"skill"`

	// Method is the operation within the skill, e.g. "write_file".
	Method string `json:"method"`

	// Params carries the method arguments.
	Params map[string]any `json:"params"`
}

// Result is the outcome of one invocation.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok builds a successful result.
func Ok(output string) Result {
	return Result{Success: true, Output: output}
}

// Failf builds a failed result with a formatted error.
func Failf(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Invoker executes capability requests. Implementations must honor context
// cancellation for long-running methods.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req Request) (Result, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// StringParam extracts a string parameter, reporting whether it was present.
func StringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntParam extracts an integer parameter. JSON decoding produces float64,
// so numeric values are coerced.
func IntParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// BoolParam extracts a boolean parameter, reporting whether it was present.
func BoolParam(params map[string]any, key string) (bool, bool) {
	v, ok := params[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
