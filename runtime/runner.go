// Package runtime sequences pipeline stages: it resolves each stage's
// input, applies the operator pipeline shard by shard, and materializes
// output behind the incremental cache.
package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/hooks"
	"github.com/teranos/foundry/logger"
	"github.com/teranos/foundry/manifest"
	"github.com/teranos/foundry/materialize"
	"github.com/teranos/foundry/operator"
	"github.com/teranos/foundry/source"
)

// Pre-execution failures, detected before any stage runs.
var (
	ErrEmptyPipeline = errors.New("pipeline has no stages")
	ErrMissingInput  = errors.New("first stage requires an explicit input")
)

// Runner executes pipeline documents against an operator registry.
type Runner struct {
	reg   *operator.Registry
	hooks hooks.Multi
	exec  ShardExecutor
	log   *zap.SugaredLogger

	shardSize   int
	workers     int
	hubCacheDir string
	hubTimeout  time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithHooks registers lifecycle hooks, notified in registration order.
func WithHooks(hs ...hooks.Hook) Option {
	return func(r *Runner) { r.hooks = append(r.hooks, hs...) }
}

// WithExecutor replaces the in-process shard executor.
func WithExecutor(e ShardExecutor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithLogger replaces the package logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Runner) { r.log = log }
}

// WithShardSize sets rows per partition and output shard.
func WithShardSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.shardSize = n
		}
	}
}

// WithWorkers bounds how many shards may be in flight at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithHubCache configures where hub sources are fetched to.
func WithHubCache(dir string, timeout time.Duration) Option {
	return func(r *Runner) {
		r.hubCacheDir = dir
		r.hubTimeout = timeout
	}
}

// New returns a Runner over reg. The registry is passed by reference, not
// copied: operators registered later are visible to subsequent runs.
func New(reg *operator.Registry, opts ...Option) *Runner {
	r := &Runner{
		reg:       reg,
		shardSize: materialize.DefaultShardSize,
		workers:   1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.exec == nil {
		r.exec = NewLocalExecutor(r.log)
	}
	if r.log == nil {
		r.log = logger.ComponentLogger("runtime")
	}
	return r
}

// Result describes a completed run.
type Result struct {
	RunID    string
	Pipeline string

	// Rows is the final stage's output row count.
	Rows int64

	// OutputDir is the final stage's materialized output location.
	OutputDir string

	// Manifest is the final stage's committed manifest.
	Manifest *manifest.Manifest

	// Stages holds one summary per stage in execution order.
	Stages []hooks.StageStats

	Elapsed time.Duration
}

// Run executes every stage of spec in order. The first failure aborts the
// run; a failed or cancelled stage never commits its manifest.
func (r *Runner) Run(ctx context.Context, spec *config.PipelineSpec) (*Result, error) {
	if len(spec.Stages) == 0 {
		return nil, ErrEmptyPipeline
	}
	if spec.Stages[0].Input == nil {
		return nil, errors.Wrapf(ErrMissingInput, "stage %q", spec.Stages[0].Name)
	}
	// Hand-built specs bypass config.Load; re-check the document invariants
	// before touching any stage output.
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()[:8]
	log := r.log.With(logger.FieldRunID, runID, logger.FieldPipeline, spec.Name)

	if msg := checkMemoryPressure(r.workers, r.shardSize); msg != "" {
		log.Warnw(msg, "workers", r.workers, logger.FieldBatchSize, r.shardSize)
	}

	start := time.Now()
	log.Infow("starting pipeline", logger.FieldCount, len(spec.Stages))

	result := &Result{RunID: runID, Pipeline: spec.Name}
	prevOutput := ""

	for i := range spec.Stages {
		stage := &spec.Stages[i]
		stats, err := r.runStage(ctx, log, stage, prevOutput)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", stage.Name)
		}
		result.Stages = append(result.Stages, stats)
		prevOutput = stage.Output.Path
	}

	last := result.Stages[len(result.Stages)-1]
	result.Rows = last.Rows
	result.OutputDir = prevOutput
	result.Elapsed = time.Since(start)
	if m, ok := materialize.Lookup(prevOutput); ok {
		result.Manifest = m
	}

	log.Infow("pipeline completed",
		logger.FieldRows, result.Rows,
		logger.FieldDurationMS, result.Elapsed.Milliseconds())
	return result, nil
}

// runStage drives one stage through resolve input, apply operators,
// materialize.
func (r *Runner) runStage(ctx context.Context, log *zap.SugaredLogger, stage *config.StageSpec, prevOutput string) (hooks.StageStats, error) {
	stageStart := time.Now()
	outDir := stage.Output.Path

	policy, err := materialize.ParsePolicy(stage.Mode())
	if err != nil {
		return hooks.StageStats{}, err
	}

	// Hooks accumulate artifacts across the whole run; remember where this
	// stage starts so its manifest records only its own.
	priorArtifacts := len(r.hooks.Artifacts())

	r.hooks.OnStageStart(stage.Name)

	// Cache fast path: a committed predecessor run serves the stage
	// without reading input or compiling operators.
	if policy == materialize.PolicyIncremental {
		if m, ok := materialize.Lookup(outDir); ok {
			stats := hooks.StageStats{Stage: stage.Name, Rows: m.Rows, Shards: len(m.Shards), Cached: true}
			r.hooks.OnStageEnd(stats)
			log.Infow("stage cached",
				logger.FieldStage, stage.Name,
				logger.FieldRows, m.Rows,
				"shards", len(m.Shards))
			return stats, nil
		}
	}

	pipe, err := operator.Compile(stage.Operators, r.reg)
	if err != nil {
		return hooks.StageStats{}, err
	}

	input := stage.Input
	if input == nil {
		// Auto-chain from the previous stage's materialized output.
		input = &config.SourceRef{Type: config.SourceFile, Path: prevOutput}
	}
	it, err := source.Open(ctx, *input, source.Options{
		HubCacheDir: r.hubCacheDir,
		HubTimeout:  r.hubTimeout,
		Logger:      log,
	})
	if err != nil {
		return hooks.StageStats{}, err
	}
	defer it.Close()

	w, err := materialize.NewWriter(outDir, stage.Name, materialize.WriterOptions{ShardSize: r.shardSize})
	if err != nil {
		return hooks.StageStats{}, err
	}
	// Abort after Commit is a no-op; this guard only fires on error paths.
	defer w.Abort()

	partitions, err := r.processShards(ctx, stage, pipe, it, w)
	if err != nil {
		return hooks.StageStats{}, err
	}

	stats := hooks.StageStats{Stage: stage.Name, Rows: w.Rows(), Shards: len(w.Shards())}
	r.hooks.OnStageEnd(stats)

	if _, err := w.Commit(r.hooks.Artifacts()[priorArtifacts:]); err != nil {
		return hooks.StageStats{}, err
	}

	log.Infow("stage completed",
		logger.FieldStage, stage.Name,
		logger.FieldRows, stats.Rows,
		"shards", stats.Shards,
		logger.FieldPartition, partitions,
		logger.FieldDurationMS, time.Since(stageStart).Milliseconds())
	return stats, nil
}

// pendingShard is one dispatched partition awaiting ordered delivery.
type pendingShard struct {
	seq  int
	b    *batch.Batch
	done chan error
}

// processShards pulls partitions from it, runs them through the executor
// with up to workers in flight, and delivers results in input order:
// partition hooks and shard writes always happen in the sequence the rows
// were read, regardless of which shard finished first.
func (r *Runner) processShards(ctx context.Context, stage *config.StageSpec, pipe *operator.Pipeline, it source.Iterator, w *materialize.Writer) (int, error) {
	workers := r.workers
	if workers < 1 {
		workers = 1
	}

	var window []pendingShard
	seq := 0

	// drain waits out in-flight shards so no goroutine outlives the stage.
	drain := func() {
		for _, p := range window {
			<-p.done
		}
		window = nil
	}

	deliver := func(p pendingShard) error {
		if err := <-p.done; err != nil {
			return err
		}
		r.hooks.OnPartitionEnd(hooks.BatchStats{
			Stage:     stage.Name,
			Partition: p.seq,
			Rows:      p.b.Len(),
			Batch:     p.b,
		})
		return w.WriteBatch(p.b)
	}

	for {
		// Cancellation is polled between shards; the cancelled stage is
		// aborted by the caller and never commits.
		if err := ctx.Err(); err != nil {
			drain()
			return seq, errors.Wrap(err, "run cancelled")
		}

		b, err := nextBatch(it, r.shardSize)
		if err != nil {
			drain()
			return seq, err
		}
		if b.Len() == 0 {
			break
		}

		p := pendingShard{seq: seq, b: b, done: make(chan error, 1)}
		seq++
		go func() {
			p.done <- r.exec.ExecuteShard(ctx, stage, pipe, p.b)
		}()

		window = append(window, p)
		if len(window) >= workers {
			head := window[0]
			window = window[1:]
			if err := deliver(head); err != nil {
				drain()
				return seq, err
			}
		}
	}

	for len(window) > 0 {
		head := window[0]
		window = window[1:]
		if err := deliver(head); err != nil {
			drain()
			return seq, err
		}
	}
	return seq, nil
}

// nextBatch reads up to n rows. A zero-length batch signals exhaustion.
func nextBatch(it source.Iterator, n int) (*batch.Batch, error) {
	b := batch.NewWithCapacity(n)
	for b.Len() < n && it.Next() {
		b.Append(it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return b, nil
}
