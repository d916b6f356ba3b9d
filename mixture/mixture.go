// Package mixture samples several weighted row streams into one. Ratios are
// approximate and per-draw: each draw renormalizes the weights of the
// still-active sources, so when a source runs dry the survivors absorb its
// share. Relative row order within each source is preserved.
package mixture

import (
	"math/rand"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
)

// Sentinel errors.
var (
	// ErrLengthMismatch is returned when sources and weights differ in length.
	ErrLengthMismatch = errors.New("mixture sources and weights length mismatch")

	// ErrInvalidWeights is returned when weights are negative or sum to <= 0.
	ErrInvalidWeights = errors.New("invalid mixture weights")
)

// Iterator is the row stream the sampler draws from. source.Iterator
// satisfies it; the sampler itself satisfies it too, so mixtures compose
// with every other source kind.
type Iterator interface {
	Next() bool
	Row() batch.Row
	Err() error
	Close() error
}

// Stream pairs a source name with its iterator. The name only matters for
// diagnostics and draw accounting.
type Stream struct {
	Name string
	It   Iterator
}

type active struct {
	name   string
	it     Iterator
	weight float64
}

// Sampler draws rows one at a time from the weighted active set. It is a
// single logical cursor: concurrent use requires external synchronization.
type Sampler struct {
	active []active
	all    []Iterator
	rng    *rand.Rand
	counts map[string]int64

	cur    batch.Row
	err    error
	closed bool
}

// New builds a sampler over streams with matching weights, seeded for
// deterministic draw sequences. Zero streams yields an empty sampler.
// Fails with ErrLengthMismatch or ErrInvalidWeights (any weight < 0, or
// a non-empty set summing to <= 0).
func New(streams []Stream, weights []float64, seed int64) (*Sampler, error) {
	if len(streams) != len(weights) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d sources, %d weights", len(streams), len(weights))
	}

	s := &Sampler{
		rng:    rand.New(rand.NewSource(seed)),
		counts: make(map[string]int64, len(streams)),
	}

	var sum float64
	for i, stream := range streams {
		w := weights[i]
		if w < 0 {
			return nil, errors.Wrapf(ErrInvalidWeights, "source %q: weight %v", stream.Name, w)
		}
		sum += w
		s.active = append(s.active, active{name: stream.Name, it: stream.It, weight: w})
		s.all = append(s.all, stream.It)
	}
	if len(streams) > 0 && sum <= 0 {
		return nil, errors.Wrapf(ErrInvalidWeights, "weights sum to %v", sum)
	}

	return s, nil
}

// Next advances to the next sampled row. Each call draws a source from the
// active set proportionally to weight; an exhausted source is retired and
// the draw repeats without emitting. Returns false when every source is
// drained or a source failed (see Err).
func (s *Sampler) Next() bool {
	if s.err != nil || s.closed {
		return false
	}

	for len(s.active) > 0 {
		idx := s.draw()
		src := &s.active[idx]

		if src.it.Next() {
			s.cur = src.it.Row()
			s.counts[src.name]++
			return true
		}

		if err := src.it.Err(); err != nil {
			s.err = errors.Wrapf(err, "mixture source %q", src.name)
			return false
		}

		// Drained cleanly: retire and redraw.
		s.active = append(s.active[:idx], s.active[idx+1:]...)
	}

	return false
}

// draw picks an active source index proportionally to the weights of the
// active set. Renormalization is implicit: the draw spans the active sum.
func (s *Sampler) draw() int {
	var sum float64
	for i := range s.active {
		sum += s.active[i].weight
	}
	if sum <= 0 {
		// All remaining weights are zero; fall back to uniform.
		return s.rng.Intn(len(s.active))
	}

	r := s.rng.Float64() * sum
	for i := range s.active {
		r -= s.active[i].weight
		if r < 0 {
			return i
		}
	}
	return len(s.active) - 1
}

// Row returns the row produced by the last successful Next.
func (s *Sampler) Row() batch.Row {
	return s.cur
}

// Err returns the first underlying source failure, if any.
func (s *Sampler) Err() error {
	return s.err
}

// Close closes every underlying source iterator, including already-drained
// ones. Safe to call more than once.
func (s *Sampler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	for _, it := range s.all {
		err = errors.CombineErrors(err, it.Close())
	}
	s.active = nil
	return err
}

// Counts reports rows emitted per source name so far.
func (s *Sampler) Counts() map[string]int64 {
	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
