package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/teranos/foundry/db"
)

// CreateTestCatalog creates a file-backed SQLite catalog under t.TempDir()
// and opens a writable handle to it. Table sources address catalogs by
// path, so an in-memory database would be invisible to them.
// Automatically registers cleanup via t.Cleanup().
func CreateTestCatalog(t *testing.T) (string, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	conn, err := db.OpenWritable(path, nil)
	if err != nil {
		t.Fatalf("Failed to create test catalog: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return path, conn
}
