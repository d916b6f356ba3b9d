package operator

import (
	"context"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/errors"
)

// step is one compiled pipeline entry. A nil op is a declared no-op: the
// reference named no implementation and is skipped at run time.
type step struct {
	id   string
	name string
	op   Operator
}

// Pipeline is a compiled, ordered list of operator instances for one stage.
type Pipeline struct {
	steps []step
}

// Compile resolves every operator reference against the registry up front,
// so unknown names, violated version constraints, and bad params all fail
// before any data is read. References with an empty Op are recorded as
// declared no-ops.
func Compile(refs []config.OperatorRef, reg *Registry) (*Pipeline, error) {
	steps := make([]step, 0, len(refs))

	for i := range refs {
		ref := &refs[i]

		if ref.Op == "" {
			steps = append(steps, step{id: ref.ID})
			continue
		}

		registration, err := reg.Resolve(ref.Op)
		if err != nil {
			return nil, errors.Wrapf(err, "operator ref %q", ref.ID)
		}
		if err := registration.checkConstraint(ref.Version); err != nil {
			return nil, errors.Wrapf(err, "operator ref %q", ref.ID)
		}

		op, err := registration.Factory(ref.Params)
		if err != nil {
			return nil, errors.Wrapf(err, "construct operator %q (ref %q)", ref.Op, ref.ID)
		}

		steps = append(steps, step{id: ref.ID, name: ref.Op, op: op})
	}

	return &Pipeline{steps: steps}, nil
}

// Run applies every compiled operator to the batch in list order, mutating
// it in place. The first failing operator aborts the pipeline.
func (p *Pipeline) Run(ctx context.Context, b *batch.Batch) error {
	for _, s := range p.steps {
		if s.op == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "pipeline cancelled")
		}
		if err := s.op.Apply(ctx, b); err != nil {
			return errors.Wrapf(err, "operator %q (ref %q)", s.name, s.id)
		}
	}
	return nil
}

// Len returns the number of compiled steps, including declared no-ops.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Skipped lists the reference ids of declared no-ops, in pipeline order.
func (p *Pipeline) Skipped() []string {
	var ids []string
	for _, s := range p.steps {
		if s.op == nil {
			ids = append(ids, s.id)
		}
	}
	return ids
}
