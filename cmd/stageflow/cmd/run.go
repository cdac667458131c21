package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meow-stack/stageflow/internal/filetool"
	"github.com/meow-stack/stageflow/internal/memory"
	"github.com/meow-stack/stageflow/internal/metrics"
	"github.com/meow-stack/stageflow/internal/pathsecurity"
	"github.com/meow-stack/stageflow/internal/promptengine"
	"github.com/meow-stack/stageflow/internal/stage"
	"github.com/meow-stack/stageflow/internal/types"
	"github.com/meow-stack/stageflow/internal/workflowdef"
)

var (
	runVars            []string
	runContinueOnError bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file>",
	Short: "Run a workflow definition file",
	Long: `Run executes every stage in a TOML or YAML workflow definition in
order, rendering each stage's prompt template against the accumulated
execution context and handing it to an agent.

stageflow ships no concrete LLM provider: the agent invoked here is an
echo stand-in that returns its rendered prompt unchanged, useful for
exercising the stage pipeline. The file-read tool is built from the
configuration, but the echo agent never calls it. Wire a real
types.AgentFactory in an embedding program for production use.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "seed variable (format: name=value)")
	runCmd.Flags().BoolVar(&runContinueOnError, "continue-on-failure", false, "keep running stages after one fails")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, logger, closer, err := loadRuntime()
	if err != nil {
		return err
	}
	defer closer.Close()

	file, err := workflowdef.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading workflow: %w", err)
	}
	stages, err := workflowdef.Build(file, cfg.Stage.DefaultMaxRetries)
	if err != nil {
		return fmt.Errorf("building workflow: %w", err)
	}

	vars, err := parseVars(runVars)
	if err != nil {
		return err
	}

	reg := metrics.New("stageflow")
	memMgr := memory.New(memory.Config{
		Thresholds: memory.Thresholds{
			Warning:   cfg.Memory.WarningThreshold,
			Critical:  cfg.Memory.CriticalThreshold,
			Emergency: cfg.Memory.EmergencyThreshold,
		},
		MonitoringInterval: cfg.Memory.MonitoringInterval,
		CleanupInterval:    cfg.Memory.CleanupInterval,
		Logger:             logger,
	}, memory.NewMetrics(reg.Registerer()))
	defer memMgr.Close(context.Background())

	readTool, err := filetool.NewFileReadTool(cfg.PathSecurity.BaseDir, pathsecurity.Config{
		MaxPathLength: cfg.PathSecurity.FileReadMaxPathLength,
		AllowSymlinks: cfg.PathSecurity.AllowSymlinks,
	})
	if err != nil {
		return fmt.Errorf("building file-read tool: %w", err)
	}
	readTool.MaxFileSize = cfg.PathSecurity.FileReadMaxSize

	var engine *promptengine.Engine
	if cfg.Template.CacheEnabled {
		engine, err = promptengine.NewEngine(cfg.Template.CacheMaxSize, cfg.Template.CacheTTL)
		if err != nil {
			return fmt.Errorf("building template engine: %w", err)
		}
	} else {
		engine = promptengine.NewEngineNoCache()
	}
	defer engine.Close()

	driver := stage.NewDriver(engine, echoAgentFactory(logger, readTool))
	driver.ContinueOnFailure = runContinueOnError

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "received shutdown signal, cancelling workflow")
		cancel()
	}()

	result, err := driver.ExecuteWorkflowWithContext(ctx, stages, vars)
	if err != nil {
		return fmt.Errorf("running workflow: %w", err)
	}

	fmt.Printf("workflow %s: success=%v elapsed=%s\n", file.Meta.Name, result.Success, result.Elapsed())
	for _, sr := range result.StageResults {
		status := "ok"
		if !sr.Success {
			status = "failed: " + sr.Error
		}
		fmt.Printf("  %-20s attempt=%d %s\n", sr.StageName, sr.Attempt, status)
	}
	if !result.Success {
		return fmt.Errorf("workflow failed: %s", result.Error)
	}
	return nil
}

func parseVars(raw []string) (map[string]any, error) {
	vars := make(map[string]any, len(raw))
	for _, v := range raw {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --var %q (expected name=value)", v)
		}
		vars[parts[0]] = parts[1]
	}
	return vars, nil
}

// echoAgentFactory builds stand-in agents that return the rendered prompt
// as their output. It exists so the CLI can exercise the full stage
// pipeline without a concrete LLM provider wired in.
func echoAgentFactory(logger *slog.Logger, readTool types.Tool) stage.AgentFactoryFor {
	return func(stageDef types.StageDefinition) types.AgentFactory {
		return func(attempt int) (types.Agent, error) {
			return types.AgentFunc{
				IDValue: "echo:" + stageDef.Name,
				Fn: func(ctx context.Context, input types.ExecutionInput) (types.ExecutionResult, error) {
					logger.Info("stage attempt", "stage", stageDef.Name, "attempt", attempt)
					_ = readTool
					return types.NewSuccess(input.Content), nil
				},
			}, nil
		}
	}
}
