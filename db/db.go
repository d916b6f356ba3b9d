// Package db opens SQLite catalog connections with the pragmas the engine
// relies on. Catalogs are plain database files addressed by path; every
// consumer (table sources, exports, test fixtures) goes through here so the
// connection discipline stays in one place.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/foundry/errors"
)

// BusyTimeoutMS is how long a connection waits on a locked catalog before
// failing with SQLITE_BUSY.
const BusyTimeoutMS = 5000

// Open opens a catalog for reading. Readers only get a busy timeout so they
// wait out a concurrent writer; the catalog's journal mode is left alone,
// since flipping it is a persistent change to a file we may not own.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debugw("Opened catalog", "path", path)
	}
	return db, nil
}

// OpenWritable opens a catalog for writing: WAL mode so readers stay
// unblocked while rows stream in, and foreign keys enforced.
func OpenWritable(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}

	if logger != nil {
		logger.Infow("Opened catalog for writing",
			"path", path,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}
	return db, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog %s", path)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", BusyTimeoutMS)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	return db, nil
}
