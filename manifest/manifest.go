// Package manifest persists the per-stage completion record. A manifest in a
// stage's output directory means that stage finished: it lists every shard
// file written and the total row count. The manifest is the idempotency key
// for incremental re-runs, so it is committed atomically and only after all
// shards are durably on disk.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/foundry/errors"
)

// FileName is the manifest's name within a stage output directory.
const FileName = "manifest.json"

// Manifest records one materialized stage. Shards hold file names relative
// to the manifest's directory so output trees stay relocatable.
type Manifest struct {
	Stage     string   `json:"stage"`
	Rows      int64    `json:"rows"`
	Shards    []string `json:"shards"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// Path returns the manifest file path for a stage output directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Read loads the manifest from dir. Returns errors.ErrNotFound when no
// manifest exists.
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "no manifest in %s", dir)
		}
		return nil, errors.Wrapf(err, "read manifest in %s", dir)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse manifest in %s", dir)
	}
	return &m, nil
}

// Write commits the manifest to dir atomically: the record is marshalled to
// a temp file in the same directory and renamed into place, so readers see
// either the old manifest or the new one, never a torn write.
func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, "."+FileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write manifest temp file in %s", dir)
	}
	if err := os.Rename(tmp, Path(dir)); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "commit manifest in %s", dir)
	}
	return nil
}

// Verify reports whether every shard the manifest lists exists in dir.
// A missing shard means the record is stale (partial delete, interrupted
// copy); callers treat that as a cache miss, not an error.
func (m *Manifest) Verify(dir string) bool {
	for _, shard := range m.Shards {
		if _, err := os.Stat(filepath.Join(dir, shard)); err != nil {
			return false
		}
	}
	return true
}

// ShardPaths resolves the manifest's shard names against dir, in manifest
// order.
func (m *Manifest) ShardPaths(dir string) []string {
	paths := make([]string, len(m.Shards))
	for i, shard := range m.Shards {
		paths[i] = filepath.Join(dir, shard)
	}
	return paths
}
