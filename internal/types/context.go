package types

// ExecutionContext is the mutable key/value mapping threaded across the
// stages of a single workflow execution. Each execution owns its own
// context instance; there is no shared mutable state across concurrent
// workflow executions.
//
// The driver reserves the keys "<stageName>.result" and "<stageName>.output"
// and writes them after every stage completes (success or terminal
// failure). Callers may seed any other keys via initialVars.
type ExecutionContext map[string]any

// NewExecutionContext returns a fresh context seeded with initialVars.
// A nil initialVars is treated as empty.
func NewExecutionContext(initialVars map[string]any) ExecutionContext {
	ctx := make(ExecutionContext, len(initialVars)+4)
	for k, v := range initialVars {
		ctx[k] = v
	}
	return ctx
}

// Get returns the value at key and whether it was present.
func (c ExecutionContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// Set stores value at key.
func (c ExecutionContext) Set(key string, value any) {
	c[key] = value
}

// Snapshot returns a shallow copy safe to hand to a template render call
// without letting the callee mutate the live execution context.
func (c ExecutionContext) Snapshot() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// StageResultKey returns the reserved context key holding a stage's
// StageResult.
func StageResultKey(stageName string) string {
	return stageName + ".result"
}

// StageOutputKey returns the reserved context key holding a stage's output
// string.
func StageOutputKey(stageName string) string {
	return stageName + ".output"
}
