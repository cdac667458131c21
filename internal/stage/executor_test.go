package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/meow-stack/stageflow/internal/types"
)

func succeedingAgentFactory(output string) types.AgentFactory {
	return func(attempt int) (types.Agent, error) {
		return types.AgentFunc{
			IDValue: "test-agent",
			Fn: func(ctx context.Context, input types.ExecutionInput) (types.ExecutionResult, error) {
				return types.NewSuccess(output), nil
			},
		}, nil
	}
}

func staticPromptFactory(prompt string) types.PromptFactory {
	return func(attempt int, ctx types.ExecutionContext) (string, error) {
		return prompt, nil
	}
}

func TestExecuteStageMaxRetriesZeroMakesNoAttempts(t *testing.T) {
	e := &Executor{}
	cfg, err := types.NewStageDefinition("s1", types.AgentDescriptor{}, "prompt", 0)
	if err != nil {
		t.Fatal(err)
	}
	called := false
	factory := func(attempt int) (types.Agent, error) {
		called = true
		return nil, errors.New("should not be called")
	}
	result := e.ExecuteStage(context.Background(), cfg, factory, staticPromptFactory("p"), types.NewExecutionContext(nil))
	if called {
		t.Fatal("agentFactory should not be invoked when maxRetries=0")
	}
	if result.Success {
		t.Fatal("expected synthetic failure")
	}
	if result.Attempt != 0 {
		t.Fatalf("Attempt = %d, want 0", result.Attempt)
	}
}

func TestExecuteStageSucceedsFirstAttempt(t *testing.T) {
	e := &Executor{}
	cfg, _ := types.NewStageDefinition("s1", types.AgentDescriptor{Name: "agent-a"}, "prompt", 3)
	result := e.ExecuteStage(context.Background(), cfg, succeedingAgentFactory("hello"), staticPromptFactory("p"), types.NewExecutionContext(nil))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if result.Output != "hello" {
		t.Fatalf("Output = %q, want %q", result.Output, "hello")
	}
	if result.Attempt != 1 {
		t.Fatalf("Attempt = %d, want 1", result.Attempt)
	}
}

func TestExecuteStageRetriesOnAgentFactoryError(t *testing.T) {
	e := &Executor{}
	cfg, _ := types.NewStageDefinition("s1", types.AgentDescriptor{}, "prompt", 3)

	calls := 0
	factory := func(attempt int) (types.Agent, error) {
		calls++
		if attempt < 3 {
			return nil, errors.New("transient failure")
		}
		return types.AgentFunc{IDValue: "a", Fn: func(ctx context.Context, input types.ExecutionInput) (types.ExecutionResult, error) {
			return types.NewSuccess("done"), nil
		}}, nil
	}

	result := e.ExecuteStage(context.Background(), cfg, factory, staticPromptFactory("p"), types.NewExecutionContext(nil))
	if !result.Success {
		t.Fatalf("expected eventual success, got error: %s", result.Error)
	}
	if calls != 3 {
		t.Fatalf("agentFactory called %d times, want 3", calls)
	}
}

func TestExecuteStageExhaustsRetriesAndReturnsLastError(t *testing.T) {
	e := &Executor{}
	cfg, _ := types.NewStageDefinition("s1", types.AgentDescriptor{}, "prompt", 2)

	factory := func(attempt int) (types.Agent, error) {
		return nil, errors.New("always fails")
	}
	result := e.ExecuteStage(context.Background(), cfg, factory, staticPromptFactory("p"), types.NewExecutionContext(nil))
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "always fails" {
		t.Fatalf("Error = %q, want %q", result.Error, "always fails")
	}
	if result.Attempt != 2 {
		t.Fatalf("Attempt = %d, want 2", result.Attempt)
	}
}

func TestExecuteStageValidatorDemotesToRetry(t *testing.T) {
	e := &Executor{}
	cfg, _ := types.NewStageDefinition("s1", types.AgentDescriptor{}, "prompt", 2)
	cfg.Validator = func(r types.StageResult) types.ValidationResult {
		if r.Output == "bad" {
			return types.Invalid("output was bad")
		}
		return types.Valid()
	}

	attempts := 0
	factory := func(attempt int) (types.Agent, error) {
		attempts++
		output := "bad"
		if attempt == 2 {
			output = "good"
		}
		return types.AgentFunc{IDValue: "a", Fn: func(ctx context.Context, input types.ExecutionInput) (types.ExecutionResult, error) {
			return types.NewSuccess(output), nil
		}}, nil
	}

	result := e.ExecuteStage(context.Background(), cfg, factory, staticPromptFactory("p"), types.NewExecutionContext(nil))
	if !result.Success {
		t.Fatalf("expected eventual success, got: %s", result.Error)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestExecuteStageValidatorRejectionAllAttemptsFails(t *testing.T) {
	e := &Executor{}
	cfg, _ := types.NewStageDefinition("s1", types.AgentDescriptor{}, "prompt", 2)
	cfg.Validator = func(r types.StageResult) types.ValidationResult {
		return types.Invalid("never good enough")
	}
	result := e.ExecuteStage(context.Background(), cfg, succeedingAgentFactory("x"), staticPromptFactory("p"), types.NewExecutionContext(nil))
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "never good enough" {
		t.Fatalf("Error = %q", result.Error)
	}
}

func TestExecuteStagePromptFactoryErrorCountsAsAttemptFailure(t *testing.T) {
	e := &Executor{}
	cfg, _ := types.NewStageDefinition("s1", types.AgentDescriptor{}, "prompt", 1)
	badPrompt := func(attempt int, ctx types.ExecutionContext) (string, error) {
		return "", errors.New("template broke")
	}
	result := e.ExecuteStage(context.Background(), cfg, succeedingAgentFactory("x"), badPrompt, types.NewExecutionContext(nil))
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "template broke" {
		t.Fatalf("Error = %q", result.Error)
	}
}
