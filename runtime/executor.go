package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/logger"
	"github.com/teranos/foundry/operator"
)

// ShardExecutor runs one stage's compiled pipeline over one row shard.
// The local implementation applies it in-process; a distributed backend
// can satisfy the same interface out of tree.
//
// Implementations must be safe for concurrent ExecuteShard calls: the
// runner dispatches up to its worker count in parallel.
type ShardExecutor interface {
	ExecuteShard(ctx context.Context, stage *config.StageSpec, pipe *operator.Pipeline, b *batch.Batch) error
}

// LocalExecutor applies pipelines on the local process.
type LocalExecutor struct {
	log *zap.SugaredLogger
}

// NewLocalExecutor returns an in-process executor. A nil log falls back to
// the package logger.
func NewLocalExecutor(log *zap.SugaredLogger) *LocalExecutor {
	if log == nil {
		log = logger.ComponentLogger("executor")
	}
	return &LocalExecutor{log: log}
}

func (e *LocalExecutor) ExecuteShard(ctx context.Context, stage *config.StageSpec, pipe *operator.Pipeline, b *batch.Batch) error {
	start := time.Now()
	in := b.Len()

	if err := pipe.Run(ctx, b); err != nil {
		return err
	}

	e.log.Debugw("shard executed",
		logger.FieldStage, stage.Name,
		logger.FieldRows, b.Len(),
		"rows_in", in,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

// Rough per-row budget for a shard resident in memory. Rows are JSON-ish
// maps; two copies can be live while a shard is both in flight and being
// written.
const approxRowBytes = 4 * 1024

// memoryBuffer is reserved for the rest of the process and the OS cache.
const memoryBuffer = 1 << 30

// safeWorkerCount recommends how many shards can be in flight for the
// available memory.
func safeWorkerCount(available uint64, shardSize int) int {
	shardBytes := uint64(shardSize) * approxRowBytes * 2
	if shardBytes == 0 || available <= memoryBuffer {
		return 1
	}
	recommended := int((available - memoryBuffer) / shardBytes)
	if recommended < 1 {
		return 1
	}
	if recommended > 32 {
		return 32
	}
	return recommended
}

// checkMemoryPressure validates the worker count against available memory.
// Returns a warning message when the configuration risks memory pressure,
// empty string when it looks fine or cannot be determined.
func checkMemoryPressure(workers, shardSize int) string {
	if workers <= 1 {
		return ""
	}
	v, err := mem.VirtualMemory()
	if err != nil {
		return "" // can't check, assume OK
	}

	recommended := safeWorkerCount(v.Available, shardSize)
	if workers <= recommended {
		return ""
	}
	return fmt.Sprintf(
		"worker count (%d) exceeds recommended (%d) for available memory (%.1fGB) at shard size %d; consider reducing workers",
		workers, recommended, float64(v.Available)/(1<<30), shardSize)
}
