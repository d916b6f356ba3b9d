package mixture

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
)

// sliceIterator yields a fixed set of rows, tracking Close calls.
type sliceIterator struct {
	rows   []batch.Row
	pos    int
	closed bool
	failAt int // 1-based position at which Next reports an error; 0 = never
	err    error
}

func (it *sliceIterator) Next() bool {
	if it.failAt > 0 && it.pos+1 == it.failAt {
		it.err = errors.New("source read failed")
		return false
	}
	if it.pos >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Row() batch.Row { return it.rows[it.pos-1] }
func (it *sliceIterator) Err() error     { return it.err }
func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}

func numberedRows(source string, n int) []batch.Row {
	rows := make([]batch.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = batch.Row{"source": source, "seq": i}
	}
	return rows
}

func drain(t *testing.T, s *Sampler) []batch.Row {
	t.Helper()
	var out []batch.Row
	for s.Next() {
		out = append(out, s.Row())
	}
	require.NoError(t, s.Err())
	return out
}

func TestSamplerEmitsEveryRow(t *testing.T) {
	a := &sliceIterator{rows: numberedRows("a", 30)}
	b := &sliceIterator{rows: numberedRows("b", 10)}

	s, err := New(
		[]Stream{{Name: "a", It: a}, {Name: "b", It: b}},
		[]float64{0.75, 0.25},
		42,
	)
	require.NoError(t, err)

	out := drain(t, s)
	assert.Len(t, out, 40)

	counts := s.Counts()
	assert.Equal(t, int64(30), counts["a"])
	assert.Equal(t, int64(10), counts["b"])
}

func TestSamplerPreservesPerSourceOrder(t *testing.T) {
	a := &sliceIterator{rows: numberedRows("a", 25)}
	b := &sliceIterator{rows: numberedRows("b", 25)}

	s, err := New(
		[]Stream{{Name: "a", It: a}, {Name: "b", It: b}},
		[]float64{0.5, 0.5},
		7,
	)
	require.NoError(t, err)

	lastSeq := map[string]int{"a": -1, "b": -1}
	for _, row := range drain(t, s) {
		src := row["source"].(string)
		seq := row["seq"].(int)
		assert.Greater(t, seq, lastSeq[src], "rows from %s out of order", src)
		lastSeq[src] = seq
	}
}

func TestSamplerApproximatesWeights(t *testing.T) {
	// 0.75/0.25 over plentiful sources: the first 40 draws should be
	// roughly 3:1. The tolerance is loose; the guarantee is approximate.
	a := &sliceIterator{rows: numberedRows("a", 1000)}
	b := &sliceIterator{rows: numberedRows("b", 1000)}

	s, err := New(
		[]Stream{{Name: "a", It: a}, {Name: "b", It: b}},
		[]float64{0.75, 0.25},
		42,
	)
	require.NoError(t, err)

	fromA := 0
	for i := 0; i < 40; i++ {
		require.True(t, s.Next())
		if s.Row()["source"] == "a" {
			fromA++
		}
	}

	// Expect 30 of 40; allow a wide band around it.
	assert.InDelta(t, 30, fromA, 8)
}

func TestSamplerRatioConverges(t *testing.T) {
	const n = 10000
	a := &sliceIterator{rows: numberedRows("a", n)}
	b := &sliceIterator{rows: numberedRows("b", n)}

	s, err := New(
		[]Stream{{Name: "a", It: a}, {Name: "b", It: b}},
		[]float64{0.75, 0.25},
		1,
	)
	require.NoError(t, err)

	fromA := 0
	for i := 0; i < n; i++ {
		require.True(t, s.Next())
		if s.Row()["source"] == "a" {
			fromA++
		}
	}

	ratio := float64(fromA) / float64(n)
	assert.InDelta(t, 0.75, ratio, 0.02)
}

func TestSamplerDeterministicForSeed(t *testing.T) {
	run := func() []string {
		a := &sliceIterator{rows: numberedRows("a", 20)}
		b := &sliceIterator{rows: numberedRows("b", 20)}
		s, err := New([]Stream{{Name: "a", It: a}, {Name: "b", It: b}}, []float64{0.6, 0.4}, 99)
		require.NoError(t, err)

		var seq []string
		for s.Next() {
			seq = append(seq, fmt.Sprintf("%s/%d", s.Row()["source"], s.Row()["seq"]))
		}
		return seq
	}

	assert.Equal(t, run(), run())
}

func TestSamplerExhaustedSourceRedraws(t *testing.T) {
	// Source b has a huge weight but only 2 rows; once drained, everything
	// comes from a without emitting gaps.
	a := &sliceIterator{rows: numberedRows("a", 10)}
	b := &sliceIterator{rows: numberedRows("b", 2)}

	s, err := New(
		[]Stream{{Name: "a", It: a}, {Name: "b", It: b}},
		[]float64{0.01, 0.99},
		3,
	)
	require.NoError(t, err)

	out := drain(t, s)
	assert.Len(t, out, 12)

	counts := s.Counts()
	assert.Equal(t, int64(10), counts["a"])
	assert.Equal(t, int64(2), counts["b"])
}

func TestSamplerZeroSources(t *testing.T) {
	s, err := New(nil, nil, 0)
	require.NoError(t, err)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.NoError(t, s.Close())
}

func TestSamplerLengthMismatch(t *testing.T) {
	a := &sliceIterator{rows: numberedRows("a", 1)}

	_, err := New([]Stream{{Name: "a", It: a}}, []float64{0.5, 0.5}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestSamplerInvalidWeights(t *testing.T) {
	a := &sliceIterator{rows: numberedRows("a", 1)}
	b := &sliceIterator{rows: numberedRows("b", 1)}

	_, err := New([]Stream{{Name: "a", It: a}, {Name: "b", It: b}}, []float64{0, 0}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWeights))

	_, err = New([]Stream{{Name: "a", It: a}, {Name: "b", It: b}}, []float64{1, -0.5}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWeights))
}

func TestSamplerSourceFailure(t *testing.T) {
	a := &sliceIterator{rows: numberedRows("a", 10), failAt: 3}

	s, err := New([]Stream{{Name: "a", It: a}}, []float64{1}, 0)
	require.NoError(t, err)

	n := 0
	for s.Next() {
		n++
	}
	assert.Equal(t, 2, n)
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), `mixture source "a"`)
}

func TestSamplerCloseClosesAll(t *testing.T) {
	a := &sliceIterator{rows: numberedRows("a", 5)}
	b := &sliceIterator{rows: numberedRows("b", 5)}

	s, err := New([]Stream{{Name: "a", It: a}, {Name: "b", It: b}}, []float64{0.5, 0.5}, 0)
	require.NoError(t, err)

	// Consume a little, then close early.
	require.True(t, s.Next())
	require.NoError(t, s.Close())

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.False(t, s.Next())

	// Idempotent
	require.NoError(t, s.Close())
}
