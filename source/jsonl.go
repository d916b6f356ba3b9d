package source

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/manifest"
)

// Scanner line buffer bounds. Rows are one JSON document per line; 16MB
// covers pathological text columns without letting a corrupt file OOM us.
const (
	scanBufSize = 64 * 1024
	scanBufMax  = 16 * 1024 * 1024
)

// openFile opens path as a jsonl source. A regular file is read directly.
// A directory is resolved shard-wise: the manifest's shard list when one is
// committed there, otherwise any *.jsonl files in name order.
func openFile(path string) (Iterator, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "source %s", path)
		}
		return nil, errors.Wrapf(err, "stat source %s", path)
	}

	if !info.IsDir() {
		return &jsonlIterator{paths: []string{path}}, nil
	}

	paths, err := resolveShards(path)
	if err != nil {
		return nil, err
	}
	return &jsonlIterator{paths: paths}, nil
}

// resolveShards lists the jsonl files backing a directory source. The
// committed manifest is authoritative when present; a bare directory of
// jsonl files still works so hand-built inputs stay usable.
func resolveShards(dir string) ([]string, error) {
	m, err := manifest.Read(dir)
	switch {
	case err == nil:
		if !m.Verify(dir) {
			return nil, errors.Newf("manifest in %s lists shards that are missing on disk", dir)
		}
		return m.ShardPaths(dir), nil
	case errors.IsNotFoundError(err):
		// fall through to globbing
	default:
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	if len(paths) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no jsonl files in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// jsonlIterator streams rows from an ordered list of jsonl files, opening
// one file at a time.
type jsonlIterator struct {
	paths []string
	idx   int

	file    *os.File
	scanner *bufio.Scanner
	line    int

	row batch.Row
	err error
}

func (it *jsonlIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.scanner == nil {
			if !it.openNext() {
				return false
			}
		}
		if it.scanner.Scan() {
			it.line++
			raw := it.scanner.Bytes()
			if len(raw) == 0 {
				continue // tolerate blank lines between rows
			}
			var row batch.Row
			if err := json.Unmarshal(raw, &row); err != nil {
				it.err = errors.Wrapf(err, "%s:%d", it.paths[it.idx-1], it.line)
				return false
			}
			it.row = row
			return true
		}
		if err := it.scanner.Err(); err != nil {
			it.err = errors.Wrapf(err, "read %s", it.paths[it.idx-1])
			return false
		}
		// Current file exhausted.
		if err := it.file.Close(); err != nil {
			it.err = errors.Wrapf(err, "close %s", it.paths[it.idx-1])
			return false
		}
		it.file = nil
		it.scanner = nil
	}
}

func (it *jsonlIterator) openNext() bool {
	if it.idx >= len(it.paths) {
		return false
	}
	f, err := os.Open(it.paths[it.idx])
	if err != nil {
		it.err = errors.Wrapf(err, "open source shard")
		return false
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, scanBufSize), scanBufMax)
	it.file = f
	it.scanner = sc
	it.line = 0
	it.idx++
	return true
}

func (it *jsonlIterator) Row() batch.Row { return it.row }
func (it *jsonlIterator) Err() error     { return it.err }

func (it *jsonlIterator) Close() error {
	if it.file == nil {
		return nil
	}
	err := it.file.Close()
	it.file = nil
	it.scanner = nil
	return err
}

// jsonlWriter appends one JSON document per row to a single file.
type jsonlWriter struct {
	path string
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create output directory")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create output %s", path)
	}
	buf := bufio.NewWriter(f)
	return &jsonlWriter{path: path, file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (w *jsonlWriter) Write(row batch.Row) error {
	// Encoder terminates each document with a newline, which is exactly
	// the jsonl framing.
	return w.enc.Encode(row)
}

func (w *jsonlWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Abort drops the partial file instead of finalizing it.
func (w *jsonlWriter) Abort() error {
	err := w.file.Close()
	return errors.CombineErrors(err, os.Remove(w.path))
}
