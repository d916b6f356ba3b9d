package ops

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/operator"
)

// newNormalizeText builds the normalize-text refiner: trims, lowercases, and
// collapses runs of whitespace in one string column. Each step can be turned
// off via params. Rows without a string value in the column pass untouched.
func newNormalizeText(params map[string]any) (operator.Operator, error) {
	column, err := stringParam(params, "column")
	if err != nil {
		return nil, err
	}
	trim, err := optionalBoolParam(params, "trim", true)
	if err != nil {
		return nil, err
	}
	lower, err := optionalBoolParam(params, "lower", true)
	if err != nil {
		return nil, err
	}
	collapse, err := optionalBoolParam(params, "collapse", true)
	if err != nil {
		return nil, err
	}

	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		for _, row := range b.Rows() {
			text, ok := row[column].(string)
			if !ok {
				continue
			}
			if trim {
				text = strings.TrimSpace(text)
			}
			if lower {
				text = strings.ToLower(text)
			}
			if collapse {
				text = strings.Join(strings.Fields(text), " ")
			}
			row[column] = text
		}
		return nil
	}), nil
}

// newTextLengthFilter builds the text-length-filter: keeps rows whose column
// holds a string of rune length within [min, max]. max <= 0 means unbounded.
// Rows without a string value are dropped.
func newTextLengthFilter(params map[string]any) (operator.Operator, error) {
	column, err := stringParam(params, "column")
	if err != nil {
		return nil, err
	}
	min, _, err := optionalNumberParam(params, "min")
	if err != nil {
		return nil, err
	}
	max, maxSet, err := optionalNumberParam(params, "max")
	if err != nil {
		return nil, err
	}

	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		b.FilterInPlace(func(row batch.Row) bool {
			text, ok := row[column].(string)
			if !ok {
				return false
			}
			n := float64(utf8.RuneCountInString(text))
			if n < min {
				return false
			}
			if maxSet && n > max {
				return false
			}
			return true
		})
		return nil
	}), nil
}

// newTextStats builds the text-stats score operator: annotates each row with
// <column>_chars and <column>_words counts. Missing or non-string values
// score zero.
func newTextStats(params map[string]any) (operator.Operator, error) {
	column, err := stringParam(params, "column")
	if err != nil {
		return nil, err
	}
	charsCol := column + "_chars"
	wordsCol := column + "_words"

	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		for _, row := range b.Rows() {
			text, _ := row[column].(string)
			row[charsCol] = utf8.RuneCountInString(text)
			row[wordsCol] = len(strings.Fields(text))
		}
		return nil
	}), nil
}
