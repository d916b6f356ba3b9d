package display

import (
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/foundry/hooks"
)

// RenderSummary prints the per-stage outcome of a finished run.
func RenderSummary(stages []hooks.StageStats, elapsed time.Duration) {
	pterm.Println()
	pterm.Success.Printf("Pipeline completed in %s\n", elapsed.Round(time.Millisecond))

	for _, s := range stages {
		if s.Cached {
			pterm.Printf("  %s: %d rows, %d shards %s\n", s.Stage, s.Rows, s.Shards, pterm.Gray("(cached)"))
			continue
		}
		pterm.Printf("  %s: %s rows, %d shards\n", s.Stage, pterm.Green(s.Rows), s.Shards)
	}
}

// RenderFailure prints a run failure for the terminal.
func RenderFailure(stage string, err error) {
	if stage != "" {
		pterm.Error.Printf("Stage %s failed: %v\n", stage, err)
		return
	}
	pterm.Error.Printf("Pipeline failed: %v\n", err)
}
