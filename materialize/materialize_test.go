package materialize

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/manifest"
)

// sliceIter serves rows from memory and records whether it was consumed.
type sliceIter struct {
	rows      []batch.Row
	pos       int
	failAt    int // 1-based row index to fail at; 0 disables
	nextCalls int
	cur       batch.Row
	err       error
}

func (s *sliceIter) Next() bool {
	s.nextCalls++
	if s.err != nil || s.pos >= len(s.rows) {
		return false
	}
	if s.failAt > 0 && s.pos+1 == s.failAt {
		s.err = fmt.Errorf("source failed at row %d", s.failAt)
		return false
	}
	s.cur = s.rows[s.pos]
	s.pos++
	return true
}

func (s *sliceIter) Row() batch.Row { return s.cur }
func (s *sliceIter) Err() error     { return s.err }
func (s *sliceIter) Close() error   { return nil }

func nRows(n int) []batch.Row {
	rows := make([]batch.Row, n)
	for i := range rows {
		rows[i] = batch.Row{"n": float64(i)}
	}
	return rows
}

func readShard(t *testing.T, path string) []batch.Row {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []batch.Row
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var row batch.Row
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, sc.Err())
	return rows
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyIncremental, p)

	p, err = ParsePolicy("overwrite")
	require.NoError(t, err)
	assert.Equal(t, PolicyOverwrite, p)

	_, err = ParsePolicy("append")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPolicy))
}

func TestWriterRotatesShards(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "clean", WriterOptions{ShardSize: 2})
	require.NoError(t, err)

	for _, row := range nRows(5) {
		require.NoError(t, w.WriteRow(row))
	}
	m, err := w.Commit(nil)
	require.NoError(t, err)

	assert.Equal(t, int64(5), m.Rows)
	require.Equal(t, []string{"part-00000.jsonl", "part-00001.jsonl", "part-00002.jsonl"}, m.Shards)

	assert.Len(t, readShard(t, filepath.Join(dir, "part-00000.jsonl")), 2)
	assert.Len(t, readShard(t, filepath.Join(dir, "part-00002.jsonl")), 1)
}

func TestWriterCommitWithNoRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "empty", WriterOptions{})
	require.NoError(t, err)

	m, err := w.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Rows)
	assert.Empty(t, m.Shards)

	// An empty stage still commits and is a valid cache hit.
	_, ok := Lookup(dir)
	assert.True(t, ok)
}

func TestWriterAbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "clean", WriterOptions{ShardSize: 1})
	require.NoError(t, err)

	for _, row := range nRows(3) {
		require.NoError(t, w.WriteRow(row))
	}
	require.NoError(t, w.Abort())

	_, ok := Lookup(dir)
	assert.False(t, ok)
	left, err := filepath.Glob(filepath.Join(dir, "part-*.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, left)

	// A finalized writer rejects further rows.
	require.Error(t, w.WriteRow(batch.Row{"n": 1.0}))
}

func TestWriterReplacesPreviousOutput(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, "clean", WriterOptions{ShardSize: 1})
	require.NoError(t, err)
	for _, row := range nRows(5) {
		require.NoError(t, w.WriteRow(row))
	}
	_, err = w.Commit(nil)
	require.NoError(t, err)

	// The rerun shrinks to 2 rows; the 3 extra shards must not survive.
	w, err = NewWriter(dir, "clean", WriterOptions{ShardSize: 1})
	require.NoError(t, err)
	for _, row := range nRows(2) {
		require.NoError(t, w.WriteRow(row))
	}
	m, err := w.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Rows)

	left, err := filepath.Glob(filepath.Join(dir, "part-*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestMaterializeIncrementalSkips(t *testing.T) {
	dir := t.TempDir()

	first := &sliceIter{rows: nRows(3)}
	m1, cached, err := Materialize(context.Background(), first, dir, "clean", PolicyIncremental, WriterOptions{})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(3), m1.Rows)

	// Changed input, same destination: the incremental path is path-keyed
	// and must return the cached output without consuming the iterator.
	second := &sliceIter{rows: nRows(10)}
	m2, cached, err := Materialize(context.Background(), second, dir, "clean", PolicyIncremental, WriterOptions{})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, m1, m2)
	assert.Zero(t, second.nextCalls)

	rows := readShard(t, filepath.Join(dir, "part-00000.jsonl"))
	assert.Len(t, rows, 3, "cached shards must not be rewritten")
}

func TestMaterializeOverwriteReplaces(t *testing.T) {
	dir := t.TempDir()

	_, cached, err := Materialize(context.Background(), &sliceIter{rows: nRows(3)}, dir, "clean", PolicyOverwrite, WriterOptions{})
	require.NoError(t, err)
	assert.False(t, cached)

	m, cached, err := Materialize(context.Background(), &sliceIter{rows: nRows(5)}, dir, "clean", PolicyOverwrite, WriterOptions{})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(5), m.Rows)

	rows := readShard(t, filepath.Join(dir, "part-00000.jsonl"))
	assert.Len(t, rows, 5)
}

func TestMaterializeSourceFailure(t *testing.T) {
	dir := t.TempDir()

	it := &sliceIter{rows: nRows(5), failAt: 3}
	_, _, err := Materialize(context.Background(), it, dir, "clean", PolicyIncremental, WriterOptions{ShardSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed at row 3")

	// The aborted run leaves neither manifest nor shards behind.
	_, ok := Lookup(dir)
	assert.False(t, ok)
	left, globErr := filepath.Glob(filepath.Join(dir, "part-*.jsonl"))
	require.NoError(t, globErr)
	assert.Empty(t, left)
}

func TestMaterializeCancelled(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Materialize(ctx, &sliceIter{rows: nRows(100)}, dir, "clean", PolicyIncremental, WriterOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	_, ok := Lookup(dir)
	assert.False(t, ok, "a cancelled stage must never commit a manifest")
}

func TestMaterializeInvalidPolicy(t *testing.T) {
	_, _, err := Materialize(context.Background(), &sliceIter{}, t.TempDir(), "clean", Policy("merge"), WriterOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPolicy))
}

func TestLookupTreatsMissingShardAsMiss(t *testing.T) {
	dir := t.TempDir()
	m := &manifest.Manifest{Stage: "clean", Rows: 1, Shards: []string{"part-00000.jsonl"}}
	require.NoError(t, m.Write(dir))

	_, ok := Lookup(dir)
	assert.False(t, ok)
}

func TestLookupIgnoresCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(manifest.Path(dir), []byte("{half"), 0o644))

	_, ok := Lookup(dir)
	assert.False(t, ok)
}
