package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/foundry/errors"
)

func writeShard(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{"a":1}`+"\n"), 0o644))
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m := &Manifest{
		Stage:     "clean",
		Rows:      1200,
		Shards:    []string{"part-00000.jsonl", "part-00001.jsonl"},
		Artifacts: []string{"profile.json"},
	}
	require.NoError(t, m.Write(dir))

	got, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	// No stray temp file is left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestReadMissing(t *testing.T) {
	_, err := Read(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("{not json"), 0o644))

	_, err := Read(dir)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrNotFound))
}

func TestWriteReplacesExisting(t *testing.T) {
	dir := t.TempDir()

	first := &Manifest{Stage: "s", Rows: 1, Shards: []string{"part-00000.jsonl"}}
	require.NoError(t, first.Write(dir))

	second := &Manifest{Stage: "s", Rows: 99, Shards: []string{"part-00000.jsonl", "part-00001.jsonl"}}
	require.NoError(t, second.Write(dir))

	got, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Rows)
	assert.Len(t, got.Shards, 2)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "part-00000.jsonl")
	writeShard(t, dir, "part-00001.jsonl")

	m := &Manifest{Stage: "s", Rows: 2, Shards: []string{"part-00000.jsonl", "part-00001.jsonl"}}
	assert.True(t, m.Verify(dir))

	// Deleting a listed shard makes the record stale
	require.NoError(t, os.Remove(filepath.Join(dir, "part-00001.jsonl")))
	assert.False(t, m.Verify(dir))

	// Empty shard list trivially verifies
	empty := &Manifest{Stage: "s"}
	assert.True(t, empty.Verify(dir))
}

func TestShardPaths(t *testing.T) {
	m := &Manifest{Shards: []string{"part-00000.jsonl", "part-00001.jsonl"}}
	paths := m.ShardPaths("/data/out")
	assert.Equal(t, []string{
		filepath.Join("/data/out", "part-00000.jsonl"),
		filepath.Join("/data/out", "part-00001.jsonl"),
	}, paths)
}
