package types

import (
	"fmt"
	"time"
)

// DefaultMaxRetries is used when a caller wants "unspecified" (negative)
// passed to NewStageDefinition.
const DefaultMaxRetries = 3

// Validator inspects a completed StageResult and decides whether its
// output is acceptable. A validator returning an invalid ValidationResult
// demotes an otherwise-successful attempt to a retry; it never panics or
// returns a Go error — rejection is expressed through the result value.
type Validator func(StageResult) ValidationResult

// ValidationResult is the outcome of running a stage's Validator.
type ValidationResult struct {
	Valid  bool
	Reason string // present iff !Valid
}

// Valid returns a successful ValidationResult.
func Valid() ValidationResult { return ValidationResult{Valid: true} }

// Invalid returns a failing ValidationResult with the given reason.
func Invalid(reason string) ValidationResult { return ValidationResult{Valid: false, Reason: reason} }

// AgentDescriptor names and describes the agent a stage will invoke. It
// carries no executable behavior itself — agentFactory callbacks decide
// what concrete Agent to construct for a given attempt.
type AgentDescriptor struct {
	Name         string
	Description  string
	Provider     LLMProvider // optional
	SystemPrompt string
}

// StageDefinition is the immutable description of one stage in a workflow.
// It never mutates once a workflow execution has started.
type StageDefinition struct {
	Name           string
	Agent          AgentDescriptor
	PromptTemplate string
	MaxRetries     int // 0 = no attempts at all
	TaskMetadata   map[string]any
	Validator      Validator
}

// NewStageDefinition builds a StageDefinition, applying DefaultMaxRetries
// when maxRetries is negative (used by callers that want "unspecified").
// A non-blank name and prompt template are required.
func NewStageDefinition(name string, agent AgentDescriptor, promptTemplate string, maxRetries int) (StageDefinition, error) {
	if name == "" {
		return StageDefinition{}, fmt.Errorf("stage name must not be blank")
	}
	if promptTemplate == "" {
		return StageDefinition{}, fmt.Errorf("stage %q: prompt template must not be blank", name)
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return StageDefinition{
		Name:           name,
		Agent:          agent,
		PromptTemplate: promptTemplate,
		MaxRetries:     maxRetries,
	}, nil
}

// StageResult is produced exactly once per stage execution, whether it
// succeeded or exhausted its retries.
type StageResult struct {
	StageName string
	Output    string
	Success   bool
	Error     string // present iff !Success
	Attempt   int    // 1-based attempt number that produced this result; 0 when MaxRetries is 0
	Elapsed   time.Duration
	AgentID   string
}

// WorkflowResult is the outcome of one call to Driver.ExecuteWorkflowWithContext.
type WorkflowResult struct {
	Start        time.Time
	End          time.Time
	Success      bool
	Error        string // present iff !Success
	StageResults []StageResult
}

// Elapsed returns the wall-clock duration of the workflow execution.
func (w WorkflowResult) Elapsed() time.Duration {
	return w.End.Sub(w.Start)
}
