package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/foundry/cmd/foundry/commands"
	"github.com/teranos/foundry/logger"
	"github.com/teranos/foundry/settings"
)

var rootCmd = &cobra.Command{
	Use:   "foundry",
	Short: "Foundry - Declarative dataset pipeline engine",
	Long: `Foundry - Declarative multi-stage dataset pipelines.

Foundry executes pipeline documents: ordered stages of operators applied to
row batches, with each stage's output materialized to sharded JSONL plus a
manifest so unchanged stages are skipped on re-runs.

Available commands:
  validate - Parse and validate a pipeline document
  run      - Execute a pipeline
  export   - Copy a materialized stage output into a SQLite catalog table
  ops      - List registered operators
  config   - Manage foundry tool settings
  version  - Show build information

Examples:
  foundry validate pipeline.yaml   # Check a document without running it
  foundry run pipeline.yaml        # Execute every stage
  foundry run pipeline.yaml --watch
  foundry ops                      # Show the operator catalog
  foundry config init              # Write a starter foundry.toml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings.Load()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}

		jsonLogs := cfg.Log.JSON
		if cmd.Flags().Changed("json-logs") {
			jsonLogs, _ = cmd.Flags().GetBool("json-logs")
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")

		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg.Log.Theme != "" {
			logger.SetTheme(cfg.Log.Theme)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON log lines instead of console output")

	// Add commands
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.OpsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
