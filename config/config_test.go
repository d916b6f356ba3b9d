package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/foundry/errors"
)

const validSpec = `
name: demo
stages:
  - name: clean
    input:
      type: file
      path: data/raw.jsonl
    operators:
      - id: trim
        kind: refiner
        op: normalize-text
        params:
          column: text
      - id: keep-long
        kind: filter
        op: text-length-filter
        params:
          column: text
          min: 10
    output:
      type: file
      path: out/clean
  - name: score
    operators:
      - id: stats
        kind: score
        op: text-stats
    output:
      type: file
      path: out/score
    materialize:
      mode: overwrite
`

func TestParseValid(t *testing.T) {
	spec, err := Parse([]byte(validSpec))
	require.NoError(t, err)

	assert.Equal(t, "demo", spec.Name)
	require.Len(t, spec.Stages, 2)

	clean := spec.Stages[0]
	assert.Equal(t, "clean", clean.Name)
	require.NotNil(t, clean.Input)
	assert.Equal(t, SourceFile, clean.Input.Type)
	assert.Equal(t, "data/raw.jsonl", clean.Input.Path)
	require.Len(t, clean.Operators, 2)
	assert.Equal(t, "normalize-text", clean.Operators[0].Op)
	assert.Equal(t, "text", clean.Operators[0].Params["column"])
	assert.Equal(t, ModeIncremental, clean.Mode())

	score := spec.Stages[1]
	assert.Nil(t, score.Input)
	assert.Equal(t, ModeOverwrite, score.Mode())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSpec), 0o644))

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", spec.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
name: demo
stagez:
  - name: clean
`))
	require.Error(t, err)
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := Parse([]byte(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty pipeline spec")
}

func TestValidateAggregatesViolations(t *testing.T) {
	_, err := Parse([]byte(`
name: ""
stages:
  - name: a
    operators:
      - id: x
        kind: mangler
    output:
      type: file
      path: out/a
  - name: a
    output:
      type: table
      catalog: cat.db
      table: rows
`))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, errors.ErrInvalidSpec))

	// Empty name + missing first input + bad kind + duplicate stage + non-file output
	assert.GreaterOrEqual(t, len(verr.Violations), 5)
	assert.Contains(t, err.Error(), `duplicate stage name "a"`)
	assert.Contains(t, err.Error(), "output must be a file source")
}

func TestValidateDuplicateStageNames(t *testing.T) {
	spec := &PipelineSpec{
		Name: "p",
		Stages: []StageSpec{
			{Name: "s", Input: &SourceRef{Type: SourceFile, Path: "in.jsonl"}, Output: SourceRef{Type: SourceFile, Path: "out/1"}},
			{Name: "s", Output: SourceRef{Type: SourceFile, Path: "out/2"}},
		},
	}

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate stage name "s"`)
}

func TestValidateDuplicateOperatorIDs(t *testing.T) {
	_, err := Parse([]byte(`
name: p
stages:
  - name: s
    input: {type: file, path: in.jsonl}
    operators:
      - {id: op1, kind: filter, op: text-length-filter}
      - {id: op1, kind: score, op: text-stats}
    output: {type: file, path: out/s}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate operator id "op1"`)
}

func TestValidateFirstStageNeedsInput(t *testing.T) {
	spec := &PipelineSpec{
		Name:   "p",
		Stages: []StageSpec{{Name: "s", Output: SourceRef{Type: SourceFile, Path: "out"}}},
	}

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first stage must declare an input")
}

func TestValidateVersionConstraint(t *testing.T) {
	base := func(version string) *PipelineSpec {
		return &PipelineSpec{
			Name: "p",
			Stages: []StageSpec{{
				Name:      "s",
				Input:     &SourceRef{Type: SourceFile, Path: "in.jsonl"},
				Operators: []OperatorRef{{ID: "x", Kind: KindRefiner, Op: "passthrough", Version: version}},
				Output:    SourceRef{Type: SourceFile, Path: "out"},
			}},
		}
	}

	require.NoError(t, base(">= 0.1.0").Validate())
	require.NoError(t, base("").Validate())

	err := base("not-a-constraint").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version constraint")
}

func TestValidateMixture(t *testing.T) {
	mix := func(sources []WeightedSource) *PipelineSpec {
		return &PipelineSpec{
			Name: "p",
			Stages: []StageSpec{{
				Name:   "s",
				Input:  &SourceRef{Type: SourceMixture, Mixture: &MixtureSpec{Sources: sources}},
				Output: SourceRef{Type: SourceFile, Path: "out"},
			}},
		}
	}

	ok := mix([]WeightedSource{
		{Name: "a", Weight: 0.75, Source: SourceRef{Type: SourceFile, Path: "a.jsonl"}},
		{Name: "b", Weight: 0.25, Source: SourceRef{Type: SourceFile, Path: "b.jsonl"}},
	})
	require.NoError(t, ok.Validate())

	err := mix([]WeightedSource{
		{Name: "a", Weight: 0, Source: SourceRef{Type: SourceFile, Path: "a.jsonl"}},
	}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight must be > 0")

	err = mix(nil).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one member")

	err = mix([]WeightedSource{
		{Name: "a", Weight: 1, Source: SourceRef{Type: SourceMixture, Mixture: &MixtureSpec{}}},
	}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixtures cannot nest")
}

func TestValidateSourceFields(t *testing.T) {
	tests := []struct {
		name string
		ref  SourceRef
		want string
	}{
		{"file without path", SourceRef{Type: SourceFile}, "requires a path"},
		{"table without catalog", SourceRef{Type: SourceTable, Table: "t"}, "requires a catalog"},
		{"table without table", SourceRef{Type: SourceTable, Catalog: "c.db"}, "requires a table name"},
		{"hub without uri", SourceRef{Type: SourceHub}, "requires a uri"},
		{"unknown type", SourceRef{Type: "ftp"}, "unsupported source type"},
		{"missing type", SourceRef{}, "source type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &PipelineSpec{
				Name: "p",
				Stages: []StageSpec{{
					Name:   "s",
					Input:  &tt.ref,
					Output: SourceRef{Type: SourceFile, Path: "out"},
				}},
			}
			err := spec.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateMaterializeMode(t *testing.T) {
	spec := &PipelineSpec{
		Name: "p",
		Stages: []StageSpec{{
			Name:        "s",
			Input:       &SourceRef{Type: SourceFile, Path: "in.jsonl"},
			Output:      SourceRef{Type: SourceFile, Path: "out"},
			Materialize: &MaterializeSpec{Mode: "append"},
		}},
	}

	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materialize.mode")
}

func TestValidKind(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, ValidKind(k), k)
	}
	assert.False(t, ValidKind("mangler"))
	assert.False(t, ValidKind(""))
	assert.False(t, ValidKind("Filter"))
}
