// Package operator defines the transformation contract and the name-based
// registry that pipeline documents resolve against. Operators mutate batches
// in place and are classified by kind (score, evaluator, filter, refiner,
// generator); the engine applies every kind identically.
package operator

import (
	"context"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
)

// Sentinel errors. Callers match with errors.Is.
var (
	// ErrDuplicateName is returned when registering a name that already exists.
	ErrDuplicateName = errors.New("operator already registered")

	// ErrInvalidKind is returned when registering with an unknown kind tag.
	ErrInvalidKind = errors.New("invalid operator kind")

	// ErrInvalidVersion is returned when a registered version is not semver.
	ErrInvalidVersion = errors.New("invalid operator version")

	// ErrUnknownOperator is returned when resolving a name that was never registered.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrVersionConflict is returned when a pipeline's version constraint
	// rejects the registered implementation.
	ErrVersionConflict = errors.New("operator version conflict")
)

// Operator transforms a batch in place. Implementations must not retain the
// batch beyond the call and must not rely on ordering across batches: the
// engine may hand shards to operators in any order.
type Operator interface {
	Apply(ctx context.Context, b *batch.Batch) error
}

// Factory builds an operator instance from its opaque param block. Factories
// validate params and fail with configuration-style errors; a returned
// operator must be ready to apply.
type Factory func(params map[string]any) (Operator, error)

// Func adapts a plain function to the Operator interface.
type Func func(ctx context.Context, b *batch.Batch) error

// Apply implements Operator.
func (f Func) Apply(ctx context.Context, b *batch.Batch) error {
	return f(ctx, b)
}
