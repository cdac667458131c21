package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meow-stack/stageflow/internal/config"
	"github.com/meow-stack/stageflow/internal/workflowdef"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Validate a workflow definition file without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	file, err := workflowdef.LoadFile(path)
	if err != nil {
		fmt.Printf("FAIL  %s\n  %v\n", path, err)
		return fmt.Errorf("validation failed")
	}

	stages, err := workflowdef.Build(file, cfg.Stage.DefaultMaxRetries)
	if err != nil {
		fmt.Printf("FAIL  %s\n  %v\n", path, err)
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("OK    %s\n", path)
	fmt.Printf("workflow: %s\n", file.Meta.Name)
	if file.Meta.Description != "" {
		fmt.Printf("  %s\n", file.Meta.Description)
	}
	fmt.Printf("stages (%d):\n", len(stages))
	for _, s := range stages {
		fmt.Printf("  - %-20s agent=%-20s max_retries=%d\n", s.Name, s.Agent.Name, s.MaxRetries)
	}
	return nil
}
