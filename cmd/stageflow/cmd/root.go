package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	configPath string
	baseDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "stageflow",
	Short: "stageflow runs sequential agent-stage workflows",
	Long: `stageflow is a sequential executor for multi-stage agent
workflows: a stage renders a prompt from the running context, hands it to
an agent, validates the result, and retries on failure before the
workflow moves to the next stage.

Workflows are declared in TOML or YAML files and run with 'stageflow run'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file (defaults built in)")
	rootCmd.PersistentFlags().StringVarP(&baseDir, "basedir", "C", ".", "base directory the file-read tool is sandboxed to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("stageflow {{.Version}}\n")
}
