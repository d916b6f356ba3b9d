// Package batch holds the in-memory row representation that operators
// transform. A Batch is uniquely owned by the engine for the duration of an
// operator call: operators mutate it in place and must not retain it.
package batch

// Row is a single record. Column values are decoded JSON/SQL types
// (string, float64, int64, bool, nil, nested maps/slices).
type Row = map[string]any

// Batch is an ordered, mutable accumulator of rows.
type Batch struct {
	rows []Row
}

// New returns a batch that takes ownership of rows.
func New(rows []Row) *Batch {
	return &Batch{rows: rows}
}

// NewWithCapacity returns an empty batch with preallocated capacity.
func NewWithCapacity(n int) *Batch {
	return &Batch{rows: make([]Row, 0, n)}
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	return len(b.rows)
}

// Rows exposes the underlying slice. Mutations are visible to the batch;
// this is the intended way for operators to edit rows in place.
func (b *Batch) Rows() []Row {
	return b.rows
}

// Append adds rows to the end of the batch.
func (b *Batch) Append(rows ...Row) {
	b.rows = append(b.rows, rows...)
}

// Replace swaps the batch contents for rows, preserving nothing.
func (b *Batch) Replace(rows []Row) {
	b.rows = rows
}

// FilterInPlace keeps only rows for which keep returns true, preserving
// relative order. The backing array is reused.
func (b *Batch) FilterInPlace(keep func(Row) bool) {
	kept := b.rows[:0]
	for _, row := range b.rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	// Release dropped rows so they can be collected.
	for i := len(kept); i < len(b.rows); i++ {
		b.rows[i] = nil
	}
	b.rows = kept
}

// Clone returns a deep copy: new row maps, shallow-copied values.
func (b *Batch) Clone() *Batch {
	rows := make([]Row, len(b.rows))
	for i, row := range b.rows {
		dup := make(Row, len(row))
		for k, v := range row {
			dup[k] = v
		}
		rows[i] = dup
	}
	return &Batch{rows: rows}
}

// Stats is a cheap snapshot used for hook notifications.
type Stats struct {
	Rows int
}

// Stats returns the current snapshot.
func (b *Batch) Stats() Stats {
	return Stats{Rows: len(b.rows)}
}
