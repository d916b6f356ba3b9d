// Package source adapts heterogeneous row stores behind one iterator shape.
// The engine reads every input kind (jsonl files, SQLite catalog tables,
// fetched hub snapshots, weighted mixtures) through the same cursor and
// writes stage output through the same writer.
package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/mixture"
)

// ErrUnsupportedKind is returned for source types the engine cannot open.
var ErrUnsupportedKind = errors.New("unsupported source kind")

// Iterator is a forward-only row cursor in the database/sql.Rows shape:
//
//	for it.Next() { row := it.Row() ... }
//	if err := it.Err(); err != nil { ... }
//
// Close must be called regardless of how iteration ends.
type Iterator interface {
	Next() bool
	Row() batch.Row
	Err() error
	Close() error
}

// Writer persists rows one at a time. Close flushes and finalizes; Abort
// discards everything written instead, so a failed producer never leaves a
// half-written sink behind.
type Writer interface {
	Write(row batch.Row) error
	Close() error
	Abort() error
}

// Options carries engine-level knobs for opening sources.
type Options struct {
	// HubCacheDir is where hub snapshots are fetched to. Empty disables
	// hub sources.
	HubCacheDir string

	// HubTimeout bounds a single hub fetch. Zero means no deadline.
	HubTimeout time.Duration

	// Logger, when set, receives fetch and open diagnostics.
	Logger *zap.SugaredLogger
}

// Open returns a row iterator for ref. The ref must already be validated;
// unknown types fail with ErrUnsupportedKind.
func Open(ctx context.Context, ref config.SourceRef, opts Options) (Iterator, error) {
	switch ref.Type {
	case config.SourceFile:
		return openFile(ref.Path)

	case config.SourceTable:
		return openTable(ctx, ref.Catalog, ref.Table, opts.Logger)

	case config.SourceHub:
		path, err := fetchHub(ctx, ref, opts)
		if err != nil {
			return nil, err
		}
		return openFile(path)

	case config.SourceMixture:
		return openMixture(ctx, ref.Mixture, opts)

	default:
		return nil, errors.Wrapf(ErrUnsupportedKind, "type %q", ref.Type)
	}
}

// OpenWriter returns a row writer for ref. File and table sinks are
// supported; everything else fails with ErrUnsupportedKind.
func OpenWriter(ctx context.Context, ref config.SourceRef) (Writer, error) {
	switch ref.Type {
	case config.SourceFile:
		return newJSONLWriter(ref.Path)
	case config.SourceTable:
		return newTableWriter(ctx, ref.Catalog, ref.Table)
	default:
		return nil, errors.Wrapf(ErrUnsupportedKind, "writer for type %q", ref.Type)
	}
}

// openMixture opens every member source and wraps them in a weighted
// sampler. An unset seed falls back to wall-clock entropy; pin Seed in the
// document for reproducible runs.
func openMixture(ctx context.Context, spec *config.MixtureSpec, opts Options) (Iterator, error) {
	if spec == nil {
		return nil, errors.New("mixture source without mixture spec")
	}

	seed := time.Now().UnixNano()
	if spec.Seed != nil {
		seed = *spec.Seed
	}

	streams := make([]mixture.Stream, 0, len(spec.Sources))
	weights := make([]float64, 0, len(spec.Sources))

	for _, member := range spec.Sources {
		it, err := Open(ctx, member.Source, opts)
		if err != nil {
			// Close the members opened so far; the sampler never owned them.
			for _, s := range streams {
				s.It.Close()
			}
			return nil, errors.Wrapf(err, "mixture member %q", member.Name)
		}
		streams = append(streams, mixture.Stream{Name: member.Name, It: it})
		weights = append(weights, member.Weight)
	}

	sampler, err := mixture.New(streams, weights, seed)
	if err != nil {
		for _, s := range streams {
			s.It.Close()
		}
		return nil, err
	}
	return sampler, nil
}
