// Package config defines the declarative pipeline document: what stages run,
// in what order, what they read, and where they materialize. Documents are
// parsed once and treated as immutable for the duration of a run.
package config

// Operator kinds. Kind tags classify an operator's intent; the engine applies
// all kinds identically (uniform in-place batch transformation).
const (
	KindScore     = "score"
	KindEvaluator = "evaluator"
	KindFilter    = "filter"
	KindRefiner   = "refiner"
	KindGenerator = "generator"
)

// Kinds lists every valid operator kind.
var Kinds = []string{KindScore, KindEvaluator, KindFilter, KindRefiner, KindGenerator}

// ValidKind reports whether kind is one of the allowed operator kinds.
func ValidKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Source kinds.
const (
	SourceFile    = "file"
	SourceTable   = "table"
	SourceHub     = "hub"
	SourceMixture = "mixture"
)

// Materialization policies.
const (
	ModeIncremental = "incremental"
	ModeOverwrite   = "overwrite"
)

// PipelineSpec is the root pipeline document.
type PipelineSpec struct {
	Name   string      `yaml:"name"`
	Stages []StageSpec `yaml:"stages"`
}

// StageSpec is one stage of the pipeline. Input is optional everywhere except
// the first stage: later stages inherit the previous stage's materialized
// output when Input is nil.
type StageSpec struct {
	Name        string           `yaml:"name"`
	Operators   []OperatorRef    `yaml:"operators"`
	Input       *SourceRef       `yaml:"input,omitempty"`
	Output      SourceRef        `yaml:"output"`
	Materialize *MaterializeSpec `yaml:"materialize,omitempty"`
}

// Mode returns the stage's materialization policy, defaulting to incremental.
func (s *StageSpec) Mode() string {
	if s.Materialize == nil || s.Materialize.Mode == "" {
		return ModeIncremental
	}
	return s.Materialize.Mode
}

// OperatorRef names one operator application within a stage. An empty Op is a
// declared no-op: the reference is accepted and skipped. Version, when set,
// is a semver constraint on the registered implementation.
type OperatorRef struct {
	ID      string         `yaml:"id"`
	Kind    string         `yaml:"kind"`
	Op      string         `yaml:"op,omitempty"`
	Version string         `yaml:"version,omitempty"`
	Params  map[string]any `yaml:"params,omitempty"`
}

// SourceRef is a discriminated union over source kinds. Exactly the fields
// for its Type are meaningful.
type SourceRef struct {
	Type string `yaml:"type"`

	// file
	Path string `yaml:"path,omitempty"`

	// table
	Catalog string `yaml:"catalog,omitempty"`
	Table   string `yaml:"table,omitempty"`

	// hub
	URI       string `yaml:"uri,omitempty"`
	Streaming bool   `yaml:"streaming,omitempty"`
	Token     string `yaml:"token,omitempty"`

	// mixture
	Mixture *MixtureSpec `yaml:"mixture,omitempty"`
}

// MixtureSpec combines several weighted sources into one sampled stream.
// Seed pins the draw sequence for reproducible runs.
type MixtureSpec struct {
	Sources []WeightedSource `yaml:"sources"`
	Seed    *int64           `yaml:"seed,omitempty"`
}

// WeightedSource is one member of a mixture.
type WeightedSource struct {
	Name   string    `yaml:"name"`
	Weight float64   `yaml:"weight"`
	Source SourceRef `yaml:"source"`
}

// MaterializeSpec selects the stage's caching policy.
type MaterializeSpec struct {
	Mode string `yaml:"mode"`
}
