package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/db"
	"github.com/teranos/foundry/errors"
)

// quoteIdent quotes a SQLite identifier. Table and column names come from
// the pipeline document, not from row data, but quoting keeps dashes and
// reserved words working.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func openTable(ctx context.Context, catalog, table string, logger *zap.SugaredLogger) (Iterator, error) {
	conn, err := db.Open(catalog, logger)
	if err != nil {
		return nil, err
	}

	it, err := newTableIterator(ctx, conn, table)
	if err != nil {
		conn.Close()
		return nil, err
	}
	it.db = conn

	if logger != nil {
		logger.Debugw("opened table source",
			"catalog", catalog,
			"table", table,
			"columns", len(it.columns))
	}
	return it, nil
}

// tableIterator streams SELECT * results as rows. Column values follow
// SQLite's dynamic typing: integers come back as int64, reals as float64,
// text as string.
type tableIterator struct {
	db      *sql.DB // closed with the iterator when set
	rows    *sql.Rows
	columns []string

	row batch.Row
	err error
}

func newTableIterator(ctx context.Context, db *sql.DB, table string) (*tableIterator, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, errors.Wrapf(err, "query table %s", table)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, errors.Wrapf(err, "read columns of %s", table)
	}
	return &tableIterator{rows: rows, columns: columns}, nil
}

func (it *tableIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = errors.Wrap(err, "scan table source")
		}
		return false
	}

	vals := make([]any, len(it.columns))
	ptrs := make([]any, len(it.columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		it.err = errors.Wrap(err, "scan table source")
		return false
	}

	row := make(batch.Row, len(it.columns))
	for i, col := range it.columns {
		if b, ok := vals[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = vals[i]
	}
	it.row = row
	return true
}

func (it *tableIterator) Row() batch.Row { return it.row }
func (it *tableIterator) Err() error     { return it.err }

func (it *tableIterator) Close() error {
	err := it.rows.Close()
	if it.db != nil {
		err = errors.CombineErrors(err, it.db.Close())
		it.db = nil
	}
	return err
}

// tableWriter streams rows into a catalog table inside a single
// transaction. The table schema is derived from the first row: one untyped
// column per key, so SQLite's affinity rules decide storage.
type tableWriter struct {
	ctx     context.Context
	db      *sql.DB
	tx      *sql.Tx
	stmt    *sql.Stmt
	table   string
	columns []string
	failed  bool
}

func newTableWriter(ctx context.Context, catalog, table string) (*tableWriter, error) {
	conn, err := db.OpenWritable(catalog, nil)
	if err != nil {
		return nil, err
	}
	return &tableWriter{ctx: ctx, db: conn, table: table}, nil
}

func (w *tableWriter) Write(row batch.Row) error {
	if w.stmt == nil {
		if err := w.prepare(row); err != nil {
			w.failed = true
			return err
		}
	}

	vals := make([]any, len(w.columns))
	for i, col := range w.columns {
		v, err := bindValue(row[col])
		if err != nil {
			w.failed = true
			return errors.Wrapf(err, "column %q", col)
		}
		vals[i] = v
	}

	if _, err := w.stmt.ExecContext(w.ctx, vals...); err != nil {
		w.failed = true
		return errors.Wrapf(err, "insert into %s", w.table)
	}
	return nil
}

// prepare creates the destination table and the insert statement from the
// first row's key set. Later rows bind NULL for keys they lack; keys the
// first row lacked are dropped.
func (w *tableWriter) prepare(row batch.Row) error {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		marks[i] = "?"
	}

	create := "CREATE TABLE IF NOT EXISTS " + quoteIdent(w.table) +
		" (" + strings.Join(quoted, ", ") + ")"
	if _, err := w.db.ExecContext(w.ctx, create); err != nil {
		return errors.Wrapf(err, "create table %s", w.table)
	}

	tx, err := w.db.BeginTx(w.ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin insert transaction")
	}

	insert := "INSERT INTO " + quoteIdent(w.table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	stmt, err := tx.PrepareContext(w.ctx, insert)
	if err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "prepare insert into %s", w.table)
	}

	w.tx = tx
	w.stmt = stmt
	w.columns = columns
	return nil
}

func (w *tableWriter) Close() error {
	if w.stmt != nil {
		w.stmt.Close()
	}
	var err error
	if w.tx != nil {
		if w.failed {
			err = w.tx.Rollback()
		} else {
			err = w.tx.Commit()
		}
	}
	return errors.CombineErrors(err, w.db.Close())
}

// Abort rolls the insert transaction back. The CREATE TABLE from prepare
// is not undone; an aborted export leaves the table as it was, possibly
// newly created and empty.
func (w *tableWriter) Abort() error {
	w.failed = true
	return w.Close()
}

// bindValue converts a row value to something the sqlite3 driver accepts.
// Scalars pass through; nested arrays and objects are stored as JSON text.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, float64, float32, int, int64, int32, bool, []byte:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "encode nested value")
		}
		return string(raw), nil
	}
}
