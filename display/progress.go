package display

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"github.com/teranos/foundry/hooks"
)

// ProgressHook renders live stage progress with a pterm spinner. Whether a
// terminal is attached is decided once at construction; without one every
// notification is a no-op and the engine's structured logs remain the only
// output.
type ProgressHook struct {
	enabled bool

	// Detail additionally prints one line per finished partition.
	Detail bool

	spinner    *pterm.SpinnerPrinter
	stage      string
	partitions int
	rows       int64
}

// NewProgressHook returns a hook that animates only when stdout is a TTY.
func NewProgressHook() *ProgressHook {
	return &ProgressHook{enabled: isatty.IsTerminal(os.Stdout.Fd())}
}

// Enabled reports whether progress will be rendered.
func (p *ProgressHook) Enabled() bool { return p.enabled }

func (p *ProgressHook) OnStageStart(stage string) {
	if !p.enabled {
		return
	}
	p.stage = stage
	p.partitions = 0
	p.rows = 0
	p.spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Stage %s...", stage))
}

func (p *ProgressHook) OnPartitionEnd(stats hooks.BatchStats) {
	if !p.enabled || p.spinner == nil {
		return
	}
	p.partitions++
	p.rows += int64(stats.Rows)
	p.spinner.UpdateText(fmt.Sprintf("Stage %s: %d rows (%d partitions)", p.stage, p.rows, p.partitions))
	if p.Detail {
		pterm.Printf("  partition %d: %d rows\n", stats.Partition, stats.Rows)
	}
}

func (p *ProgressHook) OnStageEnd(stats hooks.StageStats) {
	if !p.enabled || p.spinner == nil {
		return
	}
	if stats.Cached {
		p.spinner.Info(fmt.Sprintf("Stage %s: cached (%d rows, %d shards)", stats.Stage, stats.Rows, stats.Shards))
	} else {
		p.spinner.Success(fmt.Sprintf("Stage %s: %d rows in %d shards", stats.Stage, stats.Rows, stats.Shards))
	}
	p.spinner = nil
}
