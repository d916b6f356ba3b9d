package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/operator"
)

// newNumericRangeFilter builds the numeric-range-filter: keeps rows whose
// numeric column falls within [min, max]. Either bound may be omitted. Rows
// whose value is missing or non-numeric are dropped.
func newNumericRangeFilter(params map[string]any) (operator.Operator, error) {
	column, err := stringParam(params, "column")
	if err != nil {
		return nil, err
	}
	min, minSet, err := optionalNumberParam(params, "min")
	if err != nil {
		return nil, err
	}
	max, maxSet, err := optionalNumberParam(params, "max")
	if err != nil {
		return nil, err
	}
	if !minSet && !maxSet {
		return nil, errors.New("numeric-range-filter requires at least one of min, max")
	}

	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		b.FilterInPlace(func(row batch.Row) bool {
			v, ok := toFloat(row[column])
			if !ok {
				return false
			}
			if minSet && v < min {
				return false
			}
			if maxSet && v > max {
				return false
			}
			return true
		})
		return nil
	}), nil
}

// newAnnotateConst builds the annotate-const evaluator: sets one column to a
// constant value on every row.
func newAnnotateConst(params map[string]any) (operator.Operator, error) {
	column, err := stringParam(params, "column")
	if err != nil {
		return nil, err
	}
	value, ok := params["value"]
	if !ok {
		return nil, errors.New(`param "value" is required`)
	}

	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		for _, row := range b.Rows() {
			row[column] = value
		}
		return nil
	}), nil
}

// newAddID builds the add-id generator: assigns a fresh UUID to a column on
// every row, overwriting any existing value.
func newAddID(params map[string]any) (operator.Operator, error) {
	column, err := optionalStringParam(params, "column", "id")
	if err != nil {
		return nil, err
	}

	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		for _, row := range b.Rows() {
			row[column] = uuid.NewString()
		}
		return nil
	}), nil
}
