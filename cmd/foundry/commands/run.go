package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/display"
	"github.com/teranos/foundry/hooks"
	"github.com/teranos/foundry/logger"
	"github.com/teranos/foundry/operator"
	"github.com/teranos/foundry/operator/ops"
	"github.com/teranos/foundry/runtime"
	"github.com/teranos/foundry/settings"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Execute a pipeline document",
	Long: `Execute every stage of a pipeline document in order.

Each stage's output is materialized to sharded JSONL with a manifest.
Stages whose output directory already holds a complete manifest are skipped
unless their materialize mode is "overwrite".

Examples:
  foundry run pipeline.yaml
  foundry run pipeline.yaml --workers 4
  foundry run pipeline.yaml --watch       # re-run on document edits
  foundry run pipeline.yaml --profile-dir ./profiles`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runWatch      bool
	runWorkers    int
	runShardSize  int
	runProfileDir string
	runQuiet      bool
)

func init() {
	RunCmd.Flags().BoolVar(&runWatch, "watch", false, "Watch the document and re-run on change")
	RunCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent shards per stage (0 = settings value)")
	RunCmd.Flags().IntVar(&runShardSize, "shard-size", 0, "Rows per materialized shard (0 = settings value)")
	RunCmd.Flags().StringVar(&runProfileDir, "profile-dir", "", "Write per-stage column profiles under this directory")
	RunCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress progress spinners")
}

// runResult is the JSON shape of a completed run.
type runResult struct {
	RunID     string             `json:"run_id"`
	Pipeline  string             `json:"pipeline"`
	Rows      int64              `json:"rows"`
	OutputDir string             `json:"output_dir"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Stages    []hooks.StageStats `json:"stages"`
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	useJSON := display.ShouldOutputJSON(cmd)

	cfg, err := settings.Load()
	if err != nil {
		return err
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	runner, err := buildRunner(cfg, useJSON, verbosity)
	if err != nil {
		return err
	}

	// Ctrl+C cancels the in-flight run (and the watch loop with it).
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		logger.Logger.Infow("Received shutdown signal", "signal", sig)
		cancel()
	}()

	execute := func() error {
		spec, err := config.Load(path)
		if err != nil {
			return err
		}

		res, err := runner.Run(ctx, spec)
		if err != nil {
			if useJSON {
				display.OutputJSON(map[string]string{"error": err.Error()})
			} else {
				display.RenderFailure("", err)
			}
			return err
		}

		if useJSON {
			return display.OutputJSON(runResult{
				RunID:     res.RunID,
				Pipeline:  res.Pipeline,
				Rows:      res.Rows,
				OutputDir: res.OutputDir,
				ElapsedMS: res.Elapsed.Milliseconds(),
				Stages:    res.Stages,
			})
		}

		display.RenderSummary(res.Stages, res.Elapsed)
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", res.Rows)
		return nil
	}

	if !runWatch {
		return execute()
	}

	// Watch mode: run once, then re-run per settled edit. A failed rerun
	// keeps the watch alive so the next edit gets another chance.
	if err := execute(); err != nil && !useJSON {
		pterm.Info.Println("Watching for changes despite the failure above")
	}
	return runtime.Watch(ctx, path, runtime.DefaultDebounce, func() {
		if !useJSON {
			pterm.Info.Printf("Document changed, re-running %s\n", path)
		}
		execute()
	})
}

// buildRunner assembles the runner from settings, flags, and output hooks.
func buildRunner(cfg *settings.Config, useJSON bool, verbosity int) (*runtime.Runner, error) {
	reg := operator.NewRegistry()
	if err := ops.RegisterBuiltins(reg); err != nil {
		return nil, err
	}

	var hs []hooks.Hook
	if !runQuiet && !useJSON {
		progress := display.NewProgressHook()
		progress.Detail = logger.ShouldOutput(verbosity, logger.OutputPartitionDetail)
		hs = append(hs, progress)
	}
	if runProfileDir != "" {
		hs = append(hs, hooks.NewColumnProfile(runProfileDir))
	}

	workers := cfg.Run.Workers
	if runWorkers > 0 {
		workers = runWorkers
	}
	shardSize := cfg.Run.ShardSize
	if runShardSize > 0 {
		shardSize = runShardSize
	}

	return runtime.New(reg,
		runtime.WithHooks(hs...),
		runtime.WithWorkers(workers),
		runtime.WithShardSize(shardSize),
		runtime.WithHubCache(cfg.Hub.CacheDir, cfg.HubTimeout()),
		runtime.WithLogger(logger.ComponentLogger("run")),
	), nil
}
