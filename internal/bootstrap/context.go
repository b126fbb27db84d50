package bootstrap

import (
	"fmt"
	"sync"

	"thunderctl/internal/template"
	"thunderctl/pkg/logging"
)

// RunContext holds the identifiers produced during a bootstrap run
// (organization unit id, admin user id, ...) so later resources and steps
// can reference them. It replaces the ambient script globals of shell-based
// bootstrap flows: every consumer receives the context explicitly and
// identifiers are only visible after the producing resource stored them.
type RunContext struct {
	values map[string]interface{}
	mu     sync.RWMutex
}

// NewRunContext creates an empty run context.
func NewRunContext() *RunContext {
	return &RunContext{
		values: make(map[string]interface{}),
	}
}

// Store records an identifier under the given variable name.
func (rc *RunContext) Store(name string, value interface{}) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.values[name] = value
	logging.Debug("Bootstrap", "Stored run variable '%s': %v", name, value)
}

// Lookup retrieves a stored identifier by name.
func (rc *RunContext) Lookup(name string) (interface{}, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	value, exists := rc.values[name]
	return value, exists
}

// Snapshot returns a copy of all stored identifiers.
func (rc *RunContext) Snapshot() map[string]interface{} {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	snapshot := make(map[string]interface{}, len(rc.values))
	for k, v := range rc.values {
		snapshot[k] = v
	}
	return snapshot
}

// resolver binds a RunContext to the placeholder engine.
type resolver struct {
	runCtx *RunContext
	engine *template.Engine
}

func newResolver(runCtx *RunContext) *resolver {
	return &resolver{
		runCtx: runCtx,
		engine: template.New(),
	}
}

// resolveBody resolves placeholders in a request body against the stored
// identifiers.
func (r *resolver) resolveBody(body map[string]interface{}) (map[string]interface{}, error) {
	if body == nil {
		return nil, nil
	}

	resolved, err := r.engine.Resolve(body, r.runCtx.Snapshot())
	if err != nil {
		return nil, err
	}

	resolvedMap, ok := resolved.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("placeholder resolution returned unexpected type: %T", resolved)
	}
	return resolvedMap, nil
}

// resolveString resolves placeholders in a path or match value.
func (r *resolver) resolveString(s string) (string, error) {
	return r.engine.ResolveString(s, r.runCtx.Snapshot())
}
