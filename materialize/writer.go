package materialize

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/manifest"
)

// DefaultShardSize is the row count per shard when none is configured.
const DefaultShardSize = 10000

// shardPattern names shards by sequential index so re-runs replace files
// instead of appending new ones.
const shardPattern = "part-%05d.jsonl"

// WriterOptions tunes a stage output writer.
type WriterOptions struct {
	// ShardSize is the maximum row count per shard file. Zero means
	// DefaultShardSize.
	ShardSize int
}

// Writer streams rows into sequentially named shard files under one
// destination directory. Nothing is visible to Lookup until Commit writes
// the manifest; Abort removes everything written so far.
type Writer struct {
	dir       string
	stage     string
	shardSize int

	file    *os.File
	buf     *bufio.Writer
	enc     *json.Encoder
	curRows int

	rows   int64
	shards []string
	done   bool
}

// NewWriter prepares dir for a fresh materialization of stage. Any previous
// manifest is removed first: a stale manifest must never be left pointing
// at shards that are about to be rewritten. Previous shard files go with it
// so shrinking output cannot leave orphans behind.
func NewWriter(dir, stage string, opts WriterOptions) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create destination %s", dir)
	}
	if err := clearDestination(dir); err != nil {
		return nil, err
	}

	shardSize := opts.ShardSize
	if shardSize <= 0 {
		shardSize = DefaultShardSize
	}
	return &Writer{dir: dir, stage: stage, shardSize: shardSize}, nil
}

// clearDestination removes the manifest and old shards. The manifest goes
// first so a crash mid-clear still leaves a cache miss, not a manifest over
// half-deleted shards.
func clearDestination(dir string) error {
	if err := os.Remove(manifest.Path(dir)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove previous manifest")
	}
	stale, err := filepath.Glob(filepath.Join(dir, "part-*.jsonl"))
	if err != nil {
		return errors.Wrap(err, "list previous shards")
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return errors.Wrapf(err, "remove previous shard %s", filepath.Base(path))
		}
	}
	return nil
}

// WriteRow appends one row, rotating to a new shard file at ShardSize rows.
func (w *Writer) WriteRow(row batch.Row) error {
	if w.done {
		return errors.New("writer already finalized")
	}
	if w.file == nil {
		if err := w.openShard(); err != nil {
			return err
		}
	}
	if err := w.enc.Encode(row); err != nil {
		return errors.Wrapf(err, "write row to %s", w.shards[len(w.shards)-1])
	}
	w.curRows++
	w.rows++
	if w.curRows >= w.shardSize {
		return w.closeShard()
	}
	return nil
}

// WriteBatch appends every row of b.
func (w *Writer) WriteBatch(b *batch.Batch) error {
	for _, row := range b.Rows() {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the row count written so far.
func (w *Writer) Rows() int64 { return w.rows }

// Shards returns the shard file names written so far.
func (w *Writer) Shards() []string { return w.shards }

func (w *Writer) openShard() error {
	name := fmt.Sprintf(shardPattern, len(w.shards))
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return errors.Wrapf(err, "create shard %s", name)
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.enc = json.NewEncoder(w.buf)
	w.curRows = 0
	w.shards = append(w.shards, name)
	return nil
}

func (w *Writer) closeShard() error {
	if w.file == nil {
		return nil
	}
	name := w.shards[len(w.shards)-1]
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "flush shard %s", name)
	}
	if err := w.file.Close(); err != nil {
		return errors.Wrapf(err, "close shard %s", name)
	}
	w.file = nil
	w.buf = nil
	w.enc = nil
	w.curRows = 0
	return nil
}

// Commit finalizes the open shard and writes the manifest. The manifest is
// written only after every shard is safely on disk, so readers never see a
// committed stage with missing data.
func (w *Writer) Commit(artifacts []string) (*manifest.Manifest, error) {
	if w.done {
		return nil, errors.New("writer already finalized")
	}
	if err := w.closeShard(); err != nil {
		return nil, err
	}
	w.done = true

	m := &manifest.Manifest{
		Stage:     w.stage,
		Rows:      w.rows,
		Shards:    w.shards,
		Artifacts: artifacts,
	}
	if err := m.Write(w.dir); err != nil {
		return nil, err
	}
	return m, nil
}

// Abort discards the materialization: the open shard is closed and every
// shard written so far is removed. No manifest is ever committed on this
// path. Calling Abort after Commit is a no-op.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	var errs error
	for _, name := range w.shards {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil && !os.IsNotExist(err) {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}
