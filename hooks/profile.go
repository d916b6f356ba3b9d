package hooks

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/foundry/logger"
)

// ColumnProfile accumulates per-column statistics over a stage's
// partitions and writes <dir>/<stage>/profile.json at stage end.
//
// Whether profiling is possible is decided once, at construction: if the
// profile directory is unset or cannot be created, the hook is disabled
// and every method is a silent no-op. Profiling problems never fail a run.
type ColumnProfile struct {
	dir     string
	enabled bool

	stage      string
	partitions int
	rows       int64
	columns    map[string]*columnStats

	artifacts []string
}

type columnStats struct {
	Count int64    `json:"count"`
	Nulls int64    `json:"nulls"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

type profileDocument struct {
	Stage      string                  `json:"stage"`
	Partitions int                     `json:"partitions"`
	Rows       int64                   `json:"rows"`
	Columns    map[string]*columnStats `json:"columns"`
}

// NewColumnProfile probes dir and returns the hook. An empty dir, or one
// that cannot be created, yields a disabled hook.
func NewColumnProfile(dir string) *ColumnProfile {
	p := &ColumnProfile{dir: dir}
	if dir == "" {
		return p
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.ComponentLogger("profile").Debugw("profiling disabled",
			logger.FieldPath, dir,
			logger.FieldError, err)
		return p
	}
	p.enabled = true
	return p
}

// Enabled reports whether the hook will produce profiles.
func (p *ColumnProfile) Enabled() bool { return p.enabled }

func (p *ColumnProfile) OnStageStart(stage string) {
	if !p.enabled {
		return
	}
	p.stage = stage
	p.partitions = 0
	p.rows = 0
	p.columns = make(map[string]*columnStats)
}

func (p *ColumnProfile) OnPartitionEnd(stats BatchStats) {
	if !p.enabled || stats.Batch == nil {
		return
	}
	p.partitions++
	p.rows += int64(stats.Rows)

	for _, row := range stats.Batch.Rows() {
		for col, v := range row {
			cs := p.columns[col]
			if cs == nil {
				cs = &columnStats{}
				p.columns[col] = cs
			}
			if v == nil {
				cs.Nulls++
				continue
			}
			cs.Count++
			if f, ok := numericValue(v); ok {
				if cs.Min == nil || f < *cs.Min {
					lo := f
					cs.Min = &lo
				}
				if cs.Max == nil || f > *cs.Max {
					hi := f
					cs.Max = &hi
				}
			}
		}
	}
}

func (p *ColumnProfile) OnStageEnd(stats StageStats) {
	if !p.enabled || p.partitions == 0 {
		// Nothing observed; cached stages deliver no partitions.
		return
	}

	doc := profileDocument{
		Stage:      p.stage,
		Partitions: p.partitions,
		Rows:       p.rows,
		Columns:    p.columns,
	}

	stageDir := filepath.Join(p.dir, p.stage)
	path := filepath.Join(stageDir, "profile.json")
	log := logger.ComponentLogger("profile")

	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		log.Debugw("profile write skipped", logger.FieldPath, stageDir, logger.FieldError, err)
		return
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Debugw("profile encode skipped", logger.FieldStage, p.stage, logger.FieldError, err)
		return
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		log.Debugw("profile write skipped", logger.FieldPath, path, logger.FieldError, err)
		return
	}

	p.artifacts = append(p.artifacts, path)
	log.Debugw("profile written", logger.FieldStage, p.stage, logger.FieldPath, path)
}

// Artifacts lists profile files written during this run.
func (p *ColumnProfile) Artifacts() []string { return p.artifacts }

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
