// Package hooks defines the stage lifecycle listener seam. Hooks observe
// runs; they never steer them.
package hooks

import "github.com/teranos/foundry/batch"

// BatchStats describes one processed partition.
type BatchStats struct {
	Stage     string
	Partition int
	Rows      int

	// Batch is a read-only view of the processed partition for hooks that
	// inspect row content. Hooks must not mutate it; the engine reuses the
	// backing storage for the next partition.
	Batch *batch.Batch
}

// StageStats describes one completed stage. The JSON shape is part of the
// CLI's --json output.
type StageStats struct {
	Stage  string `json:"stage"`
	Rows   int64  `json:"rows"`
	Shards int    `json:"shards"`

	// Cached is true when the incremental fast path served the stage and
	// no partitions were processed.
	Cached bool `json:"cached"`
}

// Hook receives stage lifecycle notifications. Implementations are
// side-effect-only: they may read statistics and write auxiliary artifacts,
// and must never alter control flow. The engine invokes hooks sequentially
// from the run goroutine.
type Hook interface {
	OnStageStart(stage string)
	OnPartitionEnd(stats BatchStats)
	OnStageEnd(stats StageStats)
}

// ArtifactProvider is implemented by hooks that write files worth recording
// in the stage manifest.
type ArtifactProvider interface {
	Artifacts() []string
}

// Multi fans notifications out to each hook in registration order.
type Multi []Hook

func (m Multi) OnStageStart(stage string) {
	for _, h := range m {
		h.OnStageStart(stage)
	}
}

func (m Multi) OnPartitionEnd(stats BatchStats) {
	for _, h := range m {
		h.OnPartitionEnd(stats)
	}
}

func (m Multi) OnStageEnd(stats StageStats) {
	for _, h := range m {
		h.OnStageEnd(stats)
	}
}

// Artifacts gathers artifact paths from every member that provides them.
func (m Multi) Artifacts() []string {
	var out []string
	for _, h := range m {
		if p, ok := h.(ArtifactProvider); ok {
			out = append(out, p.Artifacts()...)
		}
	}
	return out
}
