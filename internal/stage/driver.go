package stage

import (
	"context"
	"time"

	"github.com/meow-stack/stageflow/internal/promptengine"
	"github.com/meow-stack/stageflow/internal/stageerr"
	"github.com/meow-stack/stageflow/internal/types"
)

// AgentFactoryFor builds the types.AgentFactory used for a given stage; it
// is the caller's hook for turning an AgentDescriptor into a live Agent.
type AgentFactoryFor func(stage types.StageDefinition) types.AgentFactory

// Driver runs a sequence of stages against a shared template engine. A
// Driver instance is safe to reuse across concurrent workflow executions:
// each call to ExecuteWorkflowWithContext owns its own ExecutionContext,
// and the Driver itself holds no per-execution mutable state.
type Driver struct {
	Engine   *promptengine.Engine
	Executor *Executor

	// AgentFactory builds a fresh agent for a stage/attempt pair. Required.
	AgentFactory AgentFactoryFor

	// ContinueOnFailure, when true, runs every remaining stage even after
	// one fails instead of aborting the workflow at the first failure.
	ContinueOnFailure bool
}

// NewDriver builds a Driver with a default Executor.
func NewDriver(engine *promptengine.Engine, agentFactory AgentFactoryFor) *Driver {
	return &Driver{
		Engine:       engine,
		Executor:     NewExecutor(),
		AgentFactory: agentFactory,
	}
}

// ExecuteWorkflowWithContext runs stages in order against a fresh
// ExecutionContext seeded with initialVars. Stages execute strictly
// sequentially; there is no parallelism within or across stages in one
// call. A configuration error (no stages, nil initialVars) is returned
// synchronously before any stage runs.
func (d *Driver) ExecuteWorkflowWithContext(
	ctx context.Context,
	stages []types.StageDefinition,
	initialVars map[string]any,
) (types.WorkflowResult, error) {
	if len(stages) == 0 {
		return types.WorkflowResult{}, stageerr.InputInvalid("stage: workflow must have at least one stage")
	}
	if initialVars == nil {
		return types.WorkflowResult{}, stageerr.InputInvalid("stage: initialVars must not be nil")
	}

	execCtx := types.NewExecutionContext(initialVars)
	result := types.WorkflowResult{Start: time.Now(), Success: true}

	for _, stageDef := range stages {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.Error = "cancelled: " + err.Error()
			result.End = time.Now()
			return result, nil
		}

		promptFactory := d.promptFactoryFor(stageDef)
		agentFactory := d.AgentFactory(stageDef)

		stageResult := d.Executor.ExecuteStage(ctx, stageDef, agentFactory, promptFactory, execCtx)
		result.StageResults = append(result.StageResults, stageResult)

		execCtx.Set(types.StageResultKey(stageDef.Name), stageResult)
		execCtx.Set(types.StageOutputKey(stageDef.Name), stageResult.Output)

		if !stageResult.Success {
			result.Success = false
			result.Error = stageResult.Error
			if !d.ContinueOnFailure {
				break
			}
		}
	}

	result.End = time.Now()
	return result, nil
}

// promptFactoryFor renders a stage's prompt template through the shared
// engine using a snapshot of the live execution context.
func (d *Driver) promptFactoryFor(stageDef types.StageDefinition) types.PromptFactory {
	return func(attempt int, execCtx types.ExecutionContext) (string, error) {
		vars := execCtx.Snapshot()
		vars["attempt"] = attempt
		return d.Engine.Render(stageDef.PromptTemplate, vars)
	}
}
