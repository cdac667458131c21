// Package stage implements the per-stage retry executor and the
// sequential multi-stage workflow driver.
package stage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meow-stack/stageflow/internal/types"
)

// DefaultRetryBackoff is the fixed delay inserted between a failed attempt
// and the next, chosen over an exponential schedule because stage retries
// are expected to be few (maxRetries defaults to 3) and the dominant cost
// is the agent call itself, not contention that backoff would relieve.
const DefaultRetryBackoff = 200 * time.Millisecond

// Executor runs a single stage's attempt/retry loop.
type Executor struct {
	// Backoff produces the delay before each retried attempt. Nil disables
	// the inter-attempt delay entirely.
	Backoff backoff.BackOff
}

// NewExecutor returns an Executor using a constant DefaultRetryBackoff
// delay between attempts.
func NewExecutor() *Executor {
	return &Executor{Backoff: backoff.NewConstantBackOff(DefaultRetryBackoff)}
}

// ExecuteStage runs cfg's agent up to cfg.MaxRetries times, applying
// cfg.Validator to each successful attempt, and returns exactly one
// StageResult. It never returns a Go error: agentFactory/promptFactory/
// agent failures are all folded into the returned StageResult.
func (e *Executor) ExecuteStage(
	ctx context.Context,
	cfg types.StageDefinition,
	agentFactory types.AgentFactory,
	promptFactory types.PromptFactory,
	execCtx types.ExecutionContext,
) types.StageResult {
	if cfg.MaxRetries == 0 {
		return types.StageResult{
			StageName: cfg.Name,
			Success:   false,
			Error:     "stage configured with maxRetries=0: no attempts made",
			Attempt:   0,
		}
	}

	var lastErr string

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			e.waitBackoff(ctx)
		}
		t0 := time.Now()

		result, err := e.runAttempt(ctx, cfg, agentFactory, promptFactory, execCtx, attempt, t0)
		if err != "" {
			lastErr = err
			continue
		}

		if cfg.Validator != nil {
			v := cfg.Validator(result)
			if !v.Valid {
				result.Success = false
				result.Error = v.Reason
				lastErr = v.Reason
				continue
			}
		}

		return result
	}

	if lastErr == "" {
		lastErr = "validation failed"
	}
	return types.StageResult{
		StageName: cfg.Name,
		Output:    "",
		Success:   false,
		Error:     lastErr,
		Attempt:   cfg.MaxRetries,
		AgentID:   cfg.Agent.Name,
	}
}

// runAttempt performs exactly one attempt, translating any agentFactory,
// promptFactory, or agent.Execute failure into a non-empty error string
// instead of letting it propagate.
func (e *Executor) runAttempt(
	ctx context.Context,
	cfg types.StageDefinition,
	agentFactory types.AgentFactory,
	promptFactory types.PromptFactory,
	execCtx types.ExecutionContext,
	attempt int,
	t0 time.Time,
) (types.StageResult, string) {
	agent, err := agentFactory(attempt)
	if err != nil {
		return types.StageResult{}, err.Error()
	}

	prompt, err := promptFactory(attempt, execCtx)
	if err != nil {
		return types.StageResult{}, err.Error()
	}

	execResult, err := agent.Execute(ctx, types.ExecutionInput{Content: prompt})
	if err != nil {
		return types.StageResult{}, err.Error()
	}
	if !execResult.Success {
		errMsg := execResult.Error
		if errMsg == "" {
			errMsg = "agent reported failure"
		}
		return types.StageResult{}, errMsg
	}

	return types.StageResult{
		StageName: cfg.Name,
		Output:    execResult.Output,
		Success:   true,
		Attempt:   attempt,
		Elapsed:   time.Since(t0),
		AgentID:   agent.ID(),
	}, ""
}

func (e *Executor) waitBackoff(ctx context.Context) {
	if e.Backoff == nil {
		return
	}
	d := e.Backoff.NextBackOff()
	if d == backoff.Stop || d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
