package ops

import (
	"github.com/teranos/foundry/errors"
)

// Param decoding helpers. YAML hands operators map[string]any blocks; these
// coerce the loose scalar types (int vs float64, missing vs zero) that
// documents produce in practice.

func stringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", errors.Newf("param %q is required", key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.Newf("param %q must be a non-empty string", key)
	}
	return s, nil
}

func optionalStringParam(params map[string]any, key, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.Newf("param %q must be a non-empty string", key)
	}
	return s, nil
}

func optionalBoolParam(params map[string]any, key string, fallback bool) (bool, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, errors.Newf("param %q must be a boolean", key)
	}
	return b, nil
}

// optionalNumberParam returns (value, set, error). YAML integers arrive as
// int, floats as float64.
func optionalNumberParam(params map[string]any, key string) (float64, bool, error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, false, errors.Newf("param %q must be a number", key)
	}
	return f, true, nil
}

// toFloat coerces the numeric types seen in decoded rows and params.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
