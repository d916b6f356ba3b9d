// Package materialize persists stage output as sharded jsonl plus a
// manifest, and answers the skip-or-recompute question for re-runs.
package materialize

import (
	"context"

	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/manifest"
	"github.com/teranos/foundry/source"
)

// Policy controls what an existing materialization at the destination means.
type Policy string

const (
	// PolicyIncremental skips recomputation when a committed manifest and
	// all of its shards are present.
	PolicyIncremental Policy = "incremental"

	// PolicyOverwrite always rewrites the destination.
	PolicyOverwrite Policy = "overwrite"
)

// ErrInvalidPolicy is returned for policy strings outside the two modes.
var ErrInvalidPolicy = errors.New("invalid materialize policy")

// ParsePolicy maps a config mode string to a Policy. Empty defaults to
// incremental.
func ParsePolicy(mode string) (Policy, error) {
	switch mode {
	case "", string(PolicyIncremental):
		return PolicyIncremental, nil
	case string(PolicyOverwrite):
		return PolicyOverwrite, nil
	default:
		return "", errors.Wrapf(ErrInvalidPolicy, "%q", mode)
	}
}

// Lookup probes dir for a committed materialization. It returns the
// manifest and true only when the manifest exists and every shard it lists
// is on disk; anything less is a cache miss, never an error, so a partially
// written destination self-repairs on the next run.
//
// The cache is path-keyed, not content-keyed: changed upstream input with
// an unchanged destination still counts as a hit.
func Lookup(dir string) (*manifest.Manifest, bool) {
	m, err := manifest.Read(dir)
	if err != nil {
		return nil, false
	}
	if !m.Verify(dir) {
		return nil, false
	}
	return m, true
}

// Materialize drains it into dir as stage output. Under the incremental
// policy a verified manifest short-circuits without consuming the iterator;
// the returned bool reports that cached path. The caller keeps ownership of
// the iterator and must still close it.
//
// Like Lookup, the incremental fast path is path-keyed: it does not notice
// changed upstream input.
func Materialize(ctx context.Context, it source.Iterator, dir, stage string, policy Policy, opts WriterOptions) (*manifest.Manifest, bool, error) {
	policy, err := ParsePolicy(string(policy))
	if err != nil {
		return nil, false, err
	}

	if policy == PolicyIncremental {
		if m, ok := Lookup(dir); ok {
			return m, true, nil
		}
	}

	w, err := NewWriter(dir, stage, opts)
	if err != nil {
		return nil, false, err
	}

	for it.Next() {
		if err := w.WriteRow(it.Row()); err != nil {
			w.Abort()
			return nil, false, err
		}
		if err := ctx.Err(); err != nil {
			w.Abort()
			return nil, false, errors.Wrap(err, "materialize cancelled")
		}
	}
	if err := it.Err(); err != nil {
		w.Abort()
		return nil, false, err
	}

	m, err := w.Commit(nil)
	if err != nil {
		return nil, false, err
	}
	return m, false, nil
}
