// Package ops ships the built-in operators. Nothing here is registered
// implicitly: callers opt in with RegisterBuiltins, keeping the registry an
// explicit dependency.
package ops

import (
	"context"

	"github.com/teranos/foundry/batch"
	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/operator"
)

// RegisterBuiltins registers every built-in operator on reg.
func RegisterBuiltins(reg *operator.Registry) error {
	builtins := []struct {
		name    string
		version string
		kind    string
		factory operator.Factory
	}{
		{"passthrough", "0.1.0", config.KindRefiner, newPassthrough},
		{"normalize-text", "1.1.0", config.KindRefiner, newNormalizeText},
		{"text-length-filter", "1.0.0", config.KindFilter, newTextLengthFilter},
		{"numeric-range-filter", "1.0.0", config.KindFilter, newNumericRangeFilter},
		{"text-stats", "1.2.0", config.KindScore, newTextStats},
		{"annotate-const", "1.0.0", config.KindEvaluator, newAnnotateConst},
		{"add-id", "0.2.0", config.KindGenerator, newAddID},
	}

	for _, b := range builtins {
		if err := reg.Register(b.name, b.version, b.kind, b.factory); err != nil {
			return err
		}
	}
	return nil
}

// newPassthrough returns the smoke-test operator: applies cleanly, changes nothing.
func newPassthrough(params map[string]any) (operator.Operator, error) {
	return operator.Func(func(ctx context.Context, b *batch.Batch) error {
		return nil
	}), nil
}
