package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/foundry/errors"
)

func TestOpenWritable(t *testing.T) {
	t.Run("applies write pragmas", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.db")

		db, err := OpenWritable(path, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		assert.Equal(t, "wal", journalMode)

		var foreignKeys int
		err = db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
		require.NoError(t, err)
		assert.Equal(t, 1, foreignKeys)

		var busyTimeout int
		err = db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout)
		require.NoError(t, err)
		assert.Equal(t, BusyTimeoutMS, busyTimeout)
	})

	t.Run("creates the catalog file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "new.db")

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		db, err := OpenWritable(path, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})
}

func TestOpen(t *testing.T) {
	t.Run("leaves journal mode alone", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.db")

		// Provision the file without WAL.
		w, err := open(path)
		require.NoError(t, err)
		_, err = w.Exec("CREATE TABLE samples (n)")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		db, err := Open(path, nil)
		require.NoError(t, err)
		defer db.Close()

		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		assert.NotEqual(t, "wal", journalMode)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		invalidPath := "/invalid/nonexistent/path/catalog.db"

		db, err := Open(invalidPath, nil)

		// Open may succeed on platforms with lazy connections; the busy
		// timeout pragma forces the actual file open.
		if err == nil && db != nil {
			err = db.Ping()
			db.Close()
		}
		require.Error(t, err)
	})

	t.Run("errors carry stack traces", func(t *testing.T) {
		// sqlite never creates intermediate directories, so the busy
		// timeout pragma fails on the real file open.
		_, err := OpenWritable(filepath.Join(t.TempDir(), "missing", "nested", "catalog.db"), nil)
		require.Error(t, err)
		assert.NotNil(t, errors.GetStack(err), "error should have stack trace from errors.Wrap")
	})
}

func TestOpenWithLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	logger := zaptest.NewLogger(t).Sugar()
	db, err := OpenWritable(path, logger)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()
}
