package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/foundry/errors"
)

// ValidationError aggregates every violated constraint in a pipeline
// document so a user can fix the whole spec in one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid pipeline spec: " + e.Violations[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid pipeline spec: %d violations:", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v)
	}
	return b.String()
}

// Unwrap lets errors.Is(err, errors.ErrInvalidSpec) match.
func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidSpec
}

// Validate checks every structural constraint of the document and returns a
// *ValidationError listing all violations, or nil.
func (p *PipelineSpec) Validate() error {
	var v []string

	if p.Name == "" {
		v = append(v, "pipeline name must not be empty")
	}
	if len(p.Stages) == 0 {
		v = append(v, "pipeline must declare at least one stage")
	}

	seenStages := make(map[string]bool, len(p.Stages))
	for i := range p.Stages {
		stage := &p.Stages[i]
		label := stage.Name
		if label == "" {
			label = fmt.Sprintf("stages[%d]", i)
			v = append(v, fmt.Sprintf("%s: stage name must not be empty", label))
		} else if seenStages[stage.Name] {
			v = append(v, fmt.Sprintf("duplicate stage name %q", stage.Name))
		}
		seenStages[stage.Name] = true

		if i == 0 && stage.Input == nil {
			v = append(v, fmt.Sprintf("stage %q: first stage must declare an input", label))
		}

		v = append(v, validateOperators(label, stage.Operators)...)

		if stage.Input != nil {
			v = append(v, validateSource(fmt.Sprintf("stage %q input", label), stage.Input)...)
		}

		// Stage outputs are path-addressed: the manifest and its shards
		// live in the output directory, so only file refs can carry them.
		if stage.Output.Type == "" {
			v = append(v, fmt.Sprintf("stage %q: output is required", label))
		} else if stage.Output.Type != SourceFile {
			v = append(v, fmt.Sprintf("stage %q: output must be a file source, got %q", label, stage.Output.Type))
		} else {
			v = append(v, validateSource(fmt.Sprintf("stage %q output", label), &stage.Output)...)
		}

		if stage.Materialize != nil && stage.Materialize.Mode != "" &&
			stage.Materialize.Mode != ModeIncremental && stage.Materialize.Mode != ModeOverwrite {
			v = append(v, fmt.Sprintf("stage %q: materialize.mode must be %q or %q, got %q",
				label, ModeIncremental, ModeOverwrite, stage.Materialize.Mode))
		}
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func validateOperators(stage string, refs []OperatorRef) []string {
	var v []string
	seen := make(map[string]bool, len(refs))

	for i := range refs {
		ref := &refs[i]
		label := ref.ID
		if label == "" {
			label = fmt.Sprintf("operators[%d]", i)
			v = append(v, fmt.Sprintf("stage %q: %s: operator id must not be empty", stage, label))
		} else if seen[ref.ID] {
			v = append(v, fmt.Sprintf("stage %q: duplicate operator id %q", stage, ref.ID))
		}
		seen[ref.ID] = true

		if !ValidKind(ref.Kind) {
			v = append(v, fmt.Sprintf("stage %q: operator %q: kind must be one of %s, got %q",
				stage, label, strings.Join(Kinds, "|"), ref.Kind))
		}

		if ref.Version != "" {
			if _, err := semver.NewConstraint(ref.Version); err != nil {
				v = append(v, fmt.Sprintf("stage %q: operator %q: invalid version constraint %q: %v",
					stage, label, ref.Version, err))
			}
		}
	}
	return v
}

func validateSource(where string, ref *SourceRef) []string {
	var v []string

	switch ref.Type {
	case SourceFile:
		if ref.Path == "" {
			v = append(v, fmt.Sprintf("%s: file source requires a path", where))
		}
	case SourceTable:
		if ref.Catalog == "" {
			v = append(v, fmt.Sprintf("%s: table source requires a catalog", where))
		}
		if ref.Table == "" {
			v = append(v, fmt.Sprintf("%s: table source requires a table name", where))
		}
	case SourceHub:
		if ref.URI == "" {
			v = append(v, fmt.Sprintf("%s: hub source requires a uri", where))
		}
	case SourceMixture:
		if ref.Mixture == nil || len(ref.Mixture.Sources) == 0 {
			v = append(v, fmt.Sprintf("%s: mixture source requires at least one member", where))
			break
		}
		for i := range ref.Mixture.Sources {
			member := &ref.Mixture.Sources[i]
			name := member.Name
			if name == "" {
				name = fmt.Sprintf("sources[%d]", i)
				v = append(v, fmt.Sprintf("%s: mixture %s: member name must not be empty", where, name))
			}
			if member.Weight <= 0 {
				v = append(v, fmt.Sprintf("%s: mixture member %q: weight must be > 0, got %v", where, name, member.Weight))
			}
			if member.Source.Type == SourceMixture {
				v = append(v, fmt.Sprintf("%s: mixture member %q: mixtures cannot nest", where, name))
			} else {
				v = append(v, validateSource(fmt.Sprintf("%s: mixture member %q", where, name), &member.Source)...)
			}
		}
	case "":
		v = append(v, fmt.Sprintf("%s: source type is required", where))
	default:
		v = append(v, fmt.Sprintf("%s: unsupported source type %q", where, ref.Type))
	}
	return v
}
