package types

import "context"

// ExecutionInput is the payload handed to an Agent or Tool invocation.
type ExecutionInput struct {
	Content  string
	Metadata map[string]any // optional
}

// ExecutionResult is the outcome of an Agent or Tool invocation.
type ExecutionResult struct {
	Success  bool
	Output   string
	Error    string         // present iff !Success
	Metadata map[string]any // optional
}

// NewSuccess builds a successful ExecutionResult.
func NewSuccess(output string) ExecutionResult {
	return ExecutionResult{Success: true, Output: output}
}

// NewSuccessWithMetadata builds a successful ExecutionResult carrying metadata.
func NewSuccessWithMetadata(output string, metadata map[string]any) ExecutionResult {
	return ExecutionResult{Success: true, Output: output, Metadata: metadata}
}

// NewFailure builds a failing ExecutionResult.
func NewFailure(errMsg string) ExecutionResult {
	return ExecutionResult{Success: false, Error: errMsg}
}

// NewFailureWithMetadata builds a failing ExecutionResult carrying metadata.
func NewFailureWithMetadata(errMsg string, metadata map[string]any) ExecutionResult {
	return ExecutionResult{Success: false, Error: errMsg, Metadata: metadata}
}

// Agent is any callable that transforms an ExecutionInput into an
// ExecutionResult. It is opaque to the stage executor: agents may
// internally use an LLMProvider, a Tool registry, and the file-read tool.
type Agent interface {
	Execute(ctx context.Context, input ExecutionInput) (ExecutionResult, error)
	ID() string
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc struct {
	IDValue string
	Fn      func(ctx context.Context, input ExecutionInput) (ExecutionResult, error)
}

// Execute implements Agent.
func (f AgentFunc) Execute(ctx context.Context, input ExecutionInput) (ExecutionResult, error) {
	return f.Fn(ctx, input)
}

// ID implements Agent.
func (f AgentFunc) ID() string { return f.IDValue }

// LLMProvider is a callable that accepts a prompt and returns generated
// text, or fails with a typed provider error. No streaming; retries across
// calls are the stage executor's concern, not the provider's.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Tool is a named capability an Agent may invoke (e.g. the file-read tool).
type Tool interface {
	ToolName() string
	ToolDescription() string
	RunTool(ctx context.Context, input ExecutionInput) (ExecutionResult, error)
}

// AgentFactory creates a fresh Agent for the given 1-based attempt number.
// If it returns an error, the attempt is treated as a failed attempt.
type AgentFactory func(attempt int) (Agent, error)

// PromptFactory renders the prompt for the given 1-based attempt using the
// current execution context. It may incorporate the attempt number to
// produce "retry with feedback" prompts.
type PromptFactory func(attempt int, ctx ExecutionContext) (string, error)
