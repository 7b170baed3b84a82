package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// MethodFunc executes one registered method. The request carries the scope
// and the raw params; validation against the method's schema has already
// happened by the time it runs.
type MethodFunc func(ctx context.Context, req Request) (string, error)

// MethodInfo describes a registered method.
type MethodInfo struct {
	Skill       string `json:"skill"`
	Method      string `json:"method"`
	Description string `json:"description,omitempty"`
}

type registeredMethod struct {
	info   MethodInfo
	schema *gojsonschema.Schema
	fn     MethodFunc
}

// Registry dispatches capability requests to registered methods, validating
// params against each method's JSON schema first. It implements Invoker and
// is safe for concurrent use.
type Registry struct {
	methods map[string]*registeredMethod
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]*registeredMethod),
	}
}

func methodKey(skill, method string) string {
	return skill + "." + method
}

// Register adds a method under skill. paramSchema is a JSON schema document
// for the method params; pass nil to skip validation. The schema is compiled
// once here, not per call.
func (r *Registry) Register(skill, method, description string, paramSchema []byte, fn MethodFunc) error {
	if skill == "" || method == "" {
		return fmt.Errorf("skill and method must be non-empty")
	}
	if fn == nil {
		return fmt.Errorf("method %s: nil handler", methodKey(skill, method))
	}

	var schema *gojsonschema.Schema
	if paramSchema != nil {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(paramSchema))
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", methodKey(skill, method), err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[methodKey(skill, method)] = &registeredMethod{
		info:   MethodInfo{Skill: skill, Method: method, Description: description},
		schema: schema,
		fn:     fn,
	}
	return nil
}

// Unregister removes a method. Removing an unknown method is a no-op.
func (r *Registry) Unregister(skill, method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.methods, methodKey(skill, method))
}

// Has reports whether a method is registered.
func (r *Registry) Has(skill, method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.methods[methodKey(skill, method)]
	return ok
}

// Methods returns descriptions of all registered methods, sorted by key.
func (r *Registry) Methods() []MethodInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.methods))
	for k := range r.methods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	infos := make([]MethodInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, r.methods[k].info)
	}
	return infos
}

// Count returns the number of registered methods.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.methods)
}

// Clone returns a copy of the registry sharing the same handlers.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewRegistry()
	for k, m := range r.methods {
		clone.methods[k] = m
	}
	return clone
}

// MergeFrom registers all methods from another registry, overwriting on
// key collision.
func (r *Registry) MergeFrom(other *Registry) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, m := range other.methods {
		r.methods[k] = m
	}
}

// Invoke resolves and executes a request. Unknown methods, schema
// violations, and handler errors all come back as failed Results; the error
// return is reserved for invoker faults and is always nil here.
func (r *Registry) Invoke(ctx context.Context, req Request) (Result, error) {
	r.mu.RLock()
	m, ok := r.methods[methodKey(req.Skill, req.Method)]
	r.mu.RUnlock()
	if !ok {
		return Failf("unknown method %s.%s", req.Skill, req.Method), nil
	}

	if m.schema != nil {
		if msg := validateParams(m.schema, req.Params); msg != "" {
			return Failf("invalid params for %s.%s: %s", req.Skill, req.Method, msg), nil
		}
	}

	output, err := m.fn(ctx, req)
	if err != nil {
		return Failf("%v", err), nil
	}
	return Ok(output), nil
}

// validateParams checks params against a compiled schema and returns a
// joined description of the violations, or "" when valid.
func validateParams(schema *gojsonschema.Schema, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("marshal params: %v", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(paramsJSON))
	if err != nil {
		return fmt.Sprintf("validate params: %v", err)
	}
	if result.Valid() {
		return ""
	}
	var issues []string
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return strings.Join(issues, "; ")
}
